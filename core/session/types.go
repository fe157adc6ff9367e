package session

import (
	"maps"
	"time"
)

// SenderID identifies the remote party of a conversation (a WhatsApp phone number).
type SenderID string

// State identifies a finite-state-machine step of the policy lookup dialogue.
type State string

const (
	// StateIdle indicates there is no structured dialogue in progress.
	StateIdle State = "IDLE"
	// StateWaitingPolicyChoice waits for 1A (known policy number) or 1B (unknown).
	StateWaitingPolicyChoice State = "WAITING_POLICY_CHOICE"
	// StateWaitingName waits for the full name.
	StateWaitingName State = "WAITING_NAME"
	// StateWaitingNationalID waits for the CURP.
	StateWaitingNationalID State = "WAITING_NATIONAL_ID"
	// StateWaitingBirthdate waits for a DD/MM/YYYY birth date.
	StateWaitingBirthdate State = "WAITING_BIRTHDATE"
	// StateWaitingInsuranceType waits for an insurance category code.
	StateWaitingInsuranceType State = "WAITING_INSURANCE_TYPE"
)

var allStates = []State{
	StateIdle,
	StateWaitingPolicyChoice,
	StateWaitingName,
	StateWaitingNationalID,
	StateWaitingBirthdate,
	StateWaitingInsuranceType,
}

// States returns every state in flow order.
func States() []State {
	return append([]State(nil), allStates...)
}

// Valid reports whether s belongs to the enumerated set.
func (s State) Valid() bool {
	for _, st := range allStates {
		if st == s {
			return true
		}
	}
	return false
}

func (s State) String() string { return string(s) }

// Field names a value collected during the dialogue.
type Field string

const (
	FieldFullName      Field = "fullName"
	FieldNationalID    Field = "nationalId"
	FieldBirthDate     Field = "birthDate"
	FieldInsuranceType Field = "insuranceType"
)

// Fields is a patch or snapshot of collected values.
type Fields map[Field]string

// Session stores conversation state and collected values for a sender.
type Session struct {
	State  State
	Fields Fields

	// AttemptCount and LastAttempt are bookkeeping for future throttling.
	// Nothing enforces a limit on them yet.
	AttemptCount int
	LastAttempt  time.Time
}

func newSession() *Session {
	return &Session{State: StateIdle, Fields: make(Fields)}
}

func (s *Session) snapshot() Session {
	out := *s
	out.Fields = maps.Clone(s.Fields)
	if out.Fields == nil {
		out.Fields = make(Fields)
	}
	return out
}
