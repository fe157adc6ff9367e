package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/hmbot/core/logger"
	"github.com/m3rciful/hmbot/core/reply"
	"github.com/m3rciful/hmbot/core/session"
	"github.com/m3rciful/hmbot/core/validate"
)

const component = "dialogue"

// Intake is a completed policy lookup request.
type Intake struct {
	SenderID      session.SenderID
	FullName      string
	NationalID    string
	BirthDate     string
	InsuranceType string
}

// Outcome is the result of handling one inbound text.
type Outcome struct {
	Reply reply.Spec
	From  session.State
	To    session.State
	Input InputClass
	// Completed is set when this text finished the policy lookup dialogue.
	Completed *Intake
}

// step is what a state handler decides for one input.
type step struct {
	next  session.State
	patch session.Fields
	// reset clears collected fields before patch is applied.
	reset    bool
	complete bool
	reply    reply.Spec
}

type stateHandler func(e *Engine, in Input, cur session.Session) step

var transitions = map[session.State]stateHandler{
	session.StateIdle:                 (*Engine).handleIdle,
	session.StateWaitingPolicyChoice:  (*Engine).handlePolicyChoice,
	session.StateWaitingName:          (*Engine).handleName,
	session.StateWaitingNationalID:    (*Engine).handleNationalID,
	session.StateWaitingBirthdate:     (*Engine).handleBirthDate,
	session.StateWaitingInsuranceType: (*Engine).handleInsuranceType,
}

// Engine runs the policy lookup dialogue against a session store.
type Engine struct {
	store    *session.Store
	catalog  Catalog
	handlers map[session.State]stateHandler
	now      func() time.Time
}

// NewEngine validates the catalog and checks every state has a handler.
func NewEngine(store *session.Store, catalog Catalog) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("dialogue: nil session store")
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("dialogue: invalid catalog: %w", err)
	}
	for _, st := range session.States() {
		if transitions[st] == nil {
			return nil, fmt.Errorf("dialogue: no handler for state %s", st)
		}
	}
	return &Engine{
		store:    store,
		catalog:  catalog,
		handlers: transitions,
		now:      time.Now,
	}, nil
}

// Catalog returns the content the engine answers with.
func (e *Engine) Catalog() Catalog { return e.catalog }

// Handle applies one inbound text to the sender's session and returns the reply.
// Texts from one sender are processed one at a time. Handle never fails:
// invalid input keeps the current state and re-prompts.
func (e *Engine) Handle(ctx context.Context, id session.SenderID, text string) Outcome {
	unlock := e.store.Lock(id)
	defer unlock()

	cur := e.store.GetOrCreate(id)
	e.store.Touch(id, e.now())

	h, ok := e.handlers[cur.State]
	if !ok {
		logger.Warn(ctx, component, "unknown_state", slog.String("state", string(cur.State)))
		e.store.Reset(id)
		cur = e.store.GetOrCreate(id)
		h = e.handlers[session.StateIdle]
	}

	in := Classify(cur.State, text, e.catalog.Offices)
	st := h(e, in, cur)

	if st.reset {
		e.store.Reset(id)
	}
	e.store.Update(id, st.next, st.patch)

	out := Outcome{Reply: st.reply, From: cur.State, To: st.next, Input: in.Class}
	if st.complete {
		done := e.store.GetOrCreate(id)
		out.Completed = &Intake{
			SenderID:      id,
			FullName:      done.Fields[session.FieldFullName],
			NationalID:    done.Fields[session.FieldNationalID],
			BirthDate:     done.Fields[session.FieldBirthDate],
			InsuranceType: done.Fields[session.FieldInsuranceType],
		}
		out.Reply = summary(*out.Completed)
	}

	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, component, "transition",
			slog.String("from", string(out.From)),
			slog.String("to", string(out.To)),
			slog.String("input", string(in.Class)),
			slog.String("reply_kind", string(out.Reply.Kind)),
		)
	}
	return out
}

func stay(cur session.Session, r reply.Spec) step {
	return step{next: cur.State, reply: r}
}

func (e *Engine) handleIdle(in Input, cur session.Session) step {
	c := e.catalog
	switch in.Class {
	case InputGreeting:
		return stay(cur, c.welcome())
	case InputMenu:
		return stay(cur, c.menu())
	case InputOffice:
		return stay(cur, c.office(in.Office))
	case InputThanks:
		return stay(cur, c.thanks())
	case InputFarewell:
		return stay(cur, c.farewell())
	case InputPolicyKnown, InputPolicyUnknown:
		return e.handlePolicyChoice(in, cur)
	case InputMenuOption:
		switch in.Norm {
		case "1":
			return step{next: session.StateWaitingPolicyChoice, reply: promptPolicyChoice()}
		case "2":
			return stay(cur, c.officePrompt())
		case "3":
			return stay(cur, c.document())
		case "4":
			return stay(cur, c.audio())
		case "5":
			return stay(cur, c.video())
		case "6":
			return stay(cur, c.advisors())
		case "7":
			return stay(cur, c.hours())
		}
	}
	return stay(cur, c.fallback())
}

func (e *Engine) handlePolicyChoice(in Input, cur session.Session) step {
	switch in.Class {
	case InputPolicyKnown:
		// Lookup by policy number is not automated yet; the prompt hands off to an advisor.
		return step{next: session.StateIdle, reply: promptPolicyNumber()}
	case InputPolicyUnknown:
		return step{next: session.StateWaitingName, reset: true, reply: promptName()}
	}
	return stay(cur, repromptPolicyChoice())
}

func (e *Engine) handleName(in Input, cur session.Session) step {
	if in.Class == InputText {
		if name, ok := validate.FullName(in.Raw); ok {
			return step{
				next:  session.StateWaitingNationalID,
				patch: session.Fields{session.FieldFullName: name},
				reply: promptNationalID(),
			}
		}
	}
	return stay(cur, repromptName())
}

func (e *Engine) handleNationalID(in Input, cur session.Session) step {
	if in.Class == InputText {
		if id, ok := validate.NationalID(in.Raw); ok {
			return step{
				next:  session.StateWaitingBirthdate,
				patch: session.Fields{session.FieldNationalID: id},
				reply: promptBirthDate(),
			}
		}
	}
	return stay(cur, repromptNationalID())
}

func (e *Engine) handleBirthDate(in Input, cur session.Session) step {
	if in.Class == InputText {
		if date, ok := validate.BirthDate(in.Raw); ok {
			return step{
				next:  session.StateWaitingInsuranceType,
				patch: session.Fields{session.FieldBirthDate: date},
				reply: promptInsuranceType(),
			}
		}
	}
	return stay(cur, repromptBirthDate())
}

func (e *Engine) handleInsuranceType(in Input, cur session.Session) step {
	if in.Class == InputText {
		if label, ok := validate.InsuranceCategory(in.Norm); ok {
			return step{
				next:     session.StateIdle,
				patch:    session.Fields{session.FieldInsuranceType: label},
				complete: true,
			}
		}
	}
	return stay(cur, repromptInsuranceType())
}
