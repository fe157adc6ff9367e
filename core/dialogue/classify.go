package dialogue

import (
	"strings"

	"github.com/m3rciful/hmbot/core/session"
)

// UnsupportedInput is the text the webhook layer substitutes for message
// types the bot cannot read (images, stickers, voice notes).
const UnsupportedInput = "mensaje_no_soportado"

// InputClass is the normalized meaning of an inbound text in a given state.
type InputClass string

const (
	InputUnknown       InputClass = "unknown"
	InputUnsupported   InputClass = "unsupported"
	InputGreeting      InputClass = "greeting"
	InputMenuOption    InputClass = "menu_option"
	InputOffice        InputClass = "office"
	InputThanks        InputClass = "thanks"
	InputFarewell      InputClass = "farewell"
	InputMenu          InputClass = "menu"
	InputPolicyKnown   InputClass = "policy_known"
	InputPolicyUnknown InputClass = "policy_unknown"
	// InputText is free text awaiting a validator in a data collection state.
	InputText InputClass = "text"
)

// Input is a classified inbound text.
type Input struct {
	Class InputClass
	// Raw is the text as received.
	Raw string
	// Norm is Raw trimmed and lowercased.
	Norm string
	// Office indexes Catalog.Offices when Class is InputOffice.
	Office int
}

var (
	greetingWords = []string{"hola", "hi", "buenos", "buenas"}
	farewellWords = []string{"adios", "bye", "nos vemos"}
	menuWords     = []string{"menu", "menú", "0"}
	menuCodes     = map[string]bool{"1": true, "2": true, "3": true, "4": true, "5": true, "6": true, "7": true}
)

// Classify maps text to an input class for the given state.
// Keyword triggers match as substrings, numeric codes and 1A/1B match exactly,
// all case-insensitively. offices supplies the location trigger phrases.
func Classify(st session.State, text string, offices []Office) Input {
	norm := strings.ToLower(strings.TrimSpace(text))
	in := Input{Class: InputUnknown, Raw: text, Norm: norm, Office: -1}
	if norm == UnsupportedInput {
		in.Class = InputUnsupported
		return in
	}

	switch st {
	case session.StateIdle:
		in.Class, in.Office = classifyIdle(norm, offices)
	case session.StateWaitingPolicyChoice:
		in.Class = classifyPolicyChoice(norm)
	default:
		in.Class = InputText
	}
	return in
}

func classifyIdle(norm string, offices []Office) (InputClass, int) {
	switch {
	case containsAny(norm, greetingWords):
		return InputGreeting, -1
	case menuCodes[norm]:
		return InputMenuOption, -1
	}
	if c := classifyPolicyChoice(norm); c != InputUnknown {
		return c, -1
	}
	for i, o := range offices {
		if trigger := strings.ToLower(strings.TrimSpace(o.Trigger)); trigger != "" && strings.Contains(norm, trigger) {
			return InputOffice, i
		}
	}
	switch {
	case strings.Contains(norm, "gracias"):
		return InputThanks, -1
	case containsAny(norm, farewellWords):
		return InputFarewell, -1
	case equalsAny(norm, menuWords):
		return InputMenu, -1
	}
	return InputUnknown, -1
}

func classifyPolicyChoice(norm string) InputClass {
	switch norm {
	case "1a":
		return InputPolicyKnown
	case "1b":
		return InputPolicyUnknown
	}
	return InputUnknown
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func equalsAny(s string, words []string) bool {
	for _, w := range words {
		if s == w {
			return true
		}
	}
	return false
}
