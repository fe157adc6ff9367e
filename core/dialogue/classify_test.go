package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/hmbot/core/session"
)

func TestClassifyIdle(t *testing.T) {
	offices := DefaultCatalog().Offices
	tests := []struct {
		text   string
		want   InputClass
		office int
	}{
		{"hola", InputGreeting, -1},
		{"HOLA buen día", InputGreeting, -1},
		{"Buenas tardes", InputGreeting, -1},
		{"1", InputMenuOption, -1},
		{" 7 ", InputMenuOption, -1},
		{"8", InputUnknown, -1},
		{"1A", InputPolicyKnown, -1},
		{"1b", InputPolicyUnknown, -1},
		{"oficina musa", InputOffice, 0},
		{"Quiero ver la Oficina Plaza Las Vigas", InputOffice, 1},
		{"muchas gracias", InputThanks, -1},
		{"adios", InputFarewell, -1},
		{"nos vemos", InputFarewell, -1},
		{"menu", InputMenu, -1},
		{"Menú", InputMenu, -1},
		{"0", InputMenu, -1},
		{"xyz", InputUnknown, -1},
		{UnsupportedInput, InputUnsupported, -1},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Classify(session.StateIdle, tt.text, offices)
			assert.Equal(t, tt.want, got.Class)
			assert.Equal(t, tt.office, got.Office)
			assert.Equal(t, tt.text, got.Raw)
		})
	}
}

func TestClassifyPolicyChoice(t *testing.T) {
	assert.Equal(t, InputPolicyKnown, Classify(session.StateWaitingPolicyChoice, "1a", nil).Class)
	assert.Equal(t, InputPolicyUnknown, Classify(session.StateWaitingPolicyChoice, "1B", nil).Class)
	assert.Equal(t, InputUnknown, Classify(session.StateWaitingPolicyChoice, "hola", nil).Class)
	assert.Equal(t, InputUnknown, Classify(session.StateWaitingPolicyChoice, "1", nil).Class)
}

func TestClassifyCollectionStates(t *testing.T) {
	for _, st := range []session.State{
		session.StateWaitingName,
		session.StateWaitingNationalID,
		session.StateWaitingBirthdate,
		session.StateWaitingInsuranceType,
	} {
		assert.Equal(t, InputText, Classify(st, "hola", nil).Class, st)
		assert.Equal(t, InputUnsupported, Classify(st, UnsupportedInput, nil).Class, st)
	}
}
