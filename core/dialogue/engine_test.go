package dialogue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/hmbot/core/reply"
	"github.com/m3rciful/hmbot/core/session"
)

func newTestEngine(t *testing.T) (*Engine, *session.Store) {
	t.Helper()
	store := session.NewStore()
	e, err := NewEngine(store, DefaultCatalog())
	require.NoError(t, err)
	return e, store
}

func run(e *Engine, id session.SenderID, texts ...string) Outcome {
	var out Outcome
	for _, text := range texts {
		out = e.Handle(context.Background(), id, text)
	}
	return out
}

func TestNewEngineRejectsBadInput(t *testing.T) {
	_, err := NewEngine(nil, DefaultCatalog())
	assert.Error(t, err)

	cat := DefaultCatalog()
	cat.Offices = nil
	_, err = NewEngine(session.NewStore(), cat)
	assert.Error(t, err)

	cat = DefaultCatalog()
	cat.Offices[0].Latitude = 200
	_, err = NewEngine(session.NewStore(), cat)
	assert.Error(t, err)
}

func TestPolicyLookupEndToEnd(t *testing.T) {
	e, store := newTestEngine(t)
	id := session.SenderID("5218441234567")

	out := run(e, id, "hola", "1b", "Juan Perez Garcia", "ABCD123456HDFGHI01", "15/08/1985", "2")

	sess := store.GetOrCreate(id)
	assert.Equal(t, session.StateIdle, sess.State)
	assert.Equal(t, session.Fields{
		session.FieldFullName:      "Juan Perez Garcia",
		session.FieldNationalID:    "ABCD123456HDFGHI01",
		session.FieldBirthDate:     "15/08/1985",
		session.FieldInsuranceType: "Seguro de Vida",
	}, sess.Fields)

	assert.Equal(t, session.StateWaitingInsuranceType, out.From)
	assert.Equal(t, session.StateIdle, out.To)
	require.Equal(t, reply.KindText, out.Reply.Kind)
	for _, v := range []string{"Juan Perez Garcia", "ABCD123456HDFGHI01", "15/08/1985", "Seguro de Vida"} {
		assert.Contains(t, out.Reply.Body, v)
	}
	require.NotNil(t, out.Completed)
	assert.Equal(t, Intake{
		SenderID:      id,
		FullName:      "Juan Perez Garcia",
		NationalID:    "ABCD123456HDFGHI01",
		BirthDate:     "15/08/1985",
		InsuranceType: "Seguro de Vida",
	}, *out.Completed)
}

func TestStepByStepTransitions(t *testing.T) {
	e, _ := newTestEngine(t)
	id := session.SenderID("1")
	steps := []struct {
		text string
		to   session.State
	}{
		{"1", session.StateWaitingPolicyChoice},
		{"hola", session.StateWaitingPolicyChoice},
		{"1B", session.StateWaitingName},
		{"Ana", session.StateWaitingName},
		{"  Ana María  ", session.StateWaitingNationalID},
		{"ABC", session.StateWaitingNationalID},
		{"abcd123456mdfghi01", session.StateWaitingBirthdate},
		{"1985-08-15", session.StateWaitingBirthdate},
		{"31/02/2020", session.StateWaitingInsuranceType},
		{"6", session.StateWaitingInsuranceType},
		{"5", session.StateIdle},
	}
	for i, s := range steps {
		out := e.Handle(context.Background(), id, s.text)
		assert.Equal(t, s.to, out.To, "step %d (%q)", i, s.text)
		assert.NoError(t, out.Reply.Validate(), "step %d", i)
	}
}

func TestPolicyKnownReturnsToIdle(t *testing.T) {
	e, store := newTestEngine(t)
	id := session.SenderID("2")

	out := run(e, id, "1", "1a")
	assert.Equal(t, session.StateIdle, out.To)
	assert.Contains(t, out.Reply.Body, "número de póliza")
	assert.Nil(t, out.Completed)
	assert.Equal(t, session.StateIdle, store.GetOrCreate(id).State)
}

func TestFallbackKeepsIdle(t *testing.T) {
	e, store := newTestEngine(t)
	id := session.SenderID("3")

	out := e.Handle(context.Background(), id, "xyz")
	assert.Equal(t, session.StateIdle, out.To)
	assert.Equal(t, e.Catalog().fallback(), out.Reply)
	assert.Equal(t, session.StateIdle, store.GetOrCreate(id).State)
}

func TestOfficeLocationIgnoresCollectedFields(t *testing.T) {
	e, store := newTestEngine(t)
	id := session.SenderID("4")
	store.Update(id, session.StateIdle, session.Fields{session.FieldFullName: "Someone Else"})

	out := e.Handle(context.Background(), id, "oficina musa")
	require.Equal(t, reply.KindLocation, out.Reply.Kind)
	assert.Equal(t, 25.4680278, out.Reply.Latitude)
	assert.Equal(t, -100.9627102, out.Reply.Longitude)
	assert.Equal(t, session.StateIdle, out.To)
}

func TestIdleMenuOptions(t *testing.T) {
	e, _ := newTestEngine(t)
	tests := []struct {
		text string
		kind reply.Kind
		has  string
	}{
		{"2", reply.KindText, "oficina musa"},
		{"3", reply.KindDocument, ""},
		{"4", reply.KindAudio, ""},
		{"5", reply.KindText, "youtu.be"},
		{"6", reply.KindText, "Karen Ottosen"},
		{"7", reply.KindText, "Lunes a Jueves"},
		{"hola", reply.KindText, "HM Insurance Brokers"},
		{"gracias", reply.KindText, "Gracias a ti"},
		{"bye", reply.KindText, "Hasta luego"},
		{"menu", reply.KindText, "Selecciona una opción"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			out := e.Handle(context.Background(), session.SenderID("menu-"+tt.text), tt.text)
			assert.Equal(t, session.StateIdle, out.To)
			require.Equal(t, tt.kind, out.Reply.Kind)
			assert.Contains(t, out.Reply.Body, tt.has)
			assert.NoError(t, out.Reply.Validate())
		})
	}
}

func TestVideoReplyEnablesPreview(t *testing.T) {
	e, _ := newTestEngine(t)
	out := e.Handle(context.Background(), "5", "5")
	assert.True(t, out.Reply.PreviewURL)
}

func TestInvalidNationalIDKeepsState(t *testing.T) {
	invalid := []string{
		"",
		"ABCD123456HDFGHI0",
		"ABCD123456XDFGHI01",
		"ABC1123456HDFGHI01",
		"ABCD123456HDFGHI012",
		"ABCD 123456HDFGHI01",
		UnsupportedInput,
	}
	for _, raw := range invalid {
		t.Run(raw, func(t *testing.T) {
			e, store := newTestEngine(t)
			id := session.SenderID("curp")
			run(e, id, "1b", "Juan Perez Garcia")

			out := e.Handle(context.Background(), id, raw)
			assert.Equal(t, session.StateWaitingNationalID, out.To)
			sess := store.GetOrCreate(id)
			assert.Equal(t, session.StateWaitingNationalID, sess.State)
			assert.NotContains(t, sess.Fields, session.FieldNationalID)
			assert.Equal(t, "Juan Perez Garcia", sess.Fields[session.FieldFullName])
		})
	}
}

func TestValidNationalIDIsUppercased(t *testing.T) {
	e, store := newTestEngine(t)
	id := session.SenderID("curp-ok")
	out := run(e, id, "1b", "Juan Perez Garcia", "abcd123456hdfghi01")

	assert.Equal(t, session.StateWaitingBirthdate, out.To)
	assert.Equal(t, "ABCD123456HDFGHI01", store.GetOrCreate(id).Fields[session.FieldNationalID])
}

func TestUnsupportedInputRepromptsInEveryState(t *testing.T) {
	e, store := newTestEngine(t)
	for _, st := range session.States() {
		id := session.SenderID("unsupported-" + string(st))
		store.Update(id, st, nil)
		out := e.Handle(context.Background(), id, UnsupportedInput)
		assert.Equal(t, st, out.To, st)
		assert.Equal(t, InputUnsupported, out.Input, st)
		assert.Nil(t, out.Completed, st)
	}
}

func TestNewDialogueClearsPreviousFields(t *testing.T) {
	e, store := newTestEngine(t)
	id := session.SenderID("again")
	run(e, id, "1b", "Juan Perez Garcia", "ABCD123456HDFGHI01", "15/08/1985", "1")
	require.Len(t, store.GetOrCreate(id).Fields, 4)

	run(e, id, "1", "1b")
	sess := store.GetOrCreate(id)
	assert.Equal(t, session.StateWaitingName, sess.State)
	assert.Empty(t, sess.Fields)
}

func TestHandleTracksAttempts(t *testing.T) {
	e, store := newTestEngine(t)
	id := session.SenderID("attempts")
	run(e, id, "hola", "xyz", "menu")
	sess := store.GetOrCreate(id)
	assert.Equal(t, 3, sess.AttemptCount)
	assert.False(t, sess.LastAttempt.IsZero())
}

func TestConcurrentSendersDoNotInterfere(t *testing.T) {
	e, store := newTestEngine(t)
	const senders = 32

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := session.SenderID(fmt.Sprintf("52100000%04d", i))
			run(e, id, "1b", fmt.Sprintf("Cliente Numero %d", i), "ABCD123456HDFGHI01", "15/08/1985", "3")
		}(i)
	}
	wg.Wait()

	for i := 0; i < senders; i++ {
		sess := store.GetOrCreate(session.SenderID(fmt.Sprintf("52100000%04d", i)))
		assert.Equal(t, session.StateIdle, sess.State)
		assert.Equal(t, fmt.Sprintf("Cliente Numero %d", i), sess.Fields[session.FieldFullName])
		assert.Equal(t, "Gastos Médicos Mayores", sess.Fields[session.FieldInsuranceType])
	}
}

func TestConcurrentMessagesFromOneSenderAreSerialized(t *testing.T) {
	e, store := newTestEngine(t)
	id := session.SenderID("burst")
	run(e, id, "1b")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Handle(context.Background(), id, "Juan Perez Garcia")
		}()
	}
	wg.Wait()

	sess := store.GetOrCreate(id)
	assert.Equal(t, 21, sess.AttemptCount)
	assert.Equal(t, session.StateWaitingNationalID, sess.State)
	assert.Equal(t, "Juan Perez Garcia", sess.Fields[session.FieldFullName])
	assert.NotContains(t, sess.Fields, session.FieldNationalID)
}
