package whatsapp

import (
	"errors"
	"fmt"

	"github.com/m3rciful/hmbot/core/reply"
)

// UnsupportedSentinel replaces the text of message types the bot cannot read.
const UnsupportedSentinel = "mensaje_no_soportado"

// ErrNoMessage is returned when an event carries no user message.
var ErrNoMessage = errors.New("whatsapp: event has no message")

// Inbound is a user message reduced to what the dialogue needs.
type Inbound struct {
	MessageID string
	From      string
	// Type is the original message type (text, interactive, image, ...).
	Type string
	// Text is the body, the selected option id, or UnsupportedSentinel.
	Text string
}

// Supported reports whether the message carried readable text.
func (in Inbound) Supported() bool {
	return in.Text != UnsupportedSentinel
}

// ExtractMessage returns the first message of the first change of the first
// entry, plus any delivery statuses of that change. Later messages in a
// batch are ignored.
func ExtractMessage(ev Event) (Inbound, []Status, error) {
	if len(ev.Entry) == 0 || len(ev.Entry[0].Changes) == 0 {
		return Inbound{}, nil, ErrNoMessage
	}
	value := ev.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return Inbound{}, value.Statuses, ErrNoMessage
	}

	msg := value.Messages[0]
	if msg.From == "" {
		return Inbound{}, value.Statuses, fmt.Errorf("whatsapp: message %q has no sender", msg.ID)
	}
	in := Inbound{
		MessageID: msg.ID,
		From:      msg.From,
		Type:      msg.Type,
		Text:      UnsupportedSentinel,
	}
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			in.Text = msg.Text.Body
		}
	case "interactive":
		if id := interactiveID(msg.Interactive); id != "" {
			in.Text = id
		}
	}
	return in, value.Statuses, nil
}

func interactiveID(it *Interactive) string {
	if it == nil {
		return ""
	}
	switch {
	case it.Type == "button_reply" && it.ButtonReply != nil:
		return it.ButtonReply.ID
	case it.Type == "list_reply" && it.ListReply != nil:
		return it.ListReply.ID
	}
	return ""
}

// BuildMessage renders spec into the Cloud API wire format for recipient to.
func BuildMessage(to string, spec reply.Spec) (OutboundMessage, error) {
	if err := spec.Validate(); err != nil {
		return OutboundMessage{}, err
	}
	msg := OutboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             string(spec.Kind),
	}
	switch spec.Kind {
	case reply.KindText:
		msg.Text = &OutboundText{PreviewURL: spec.PreviewURL, Body: spec.Body}
	case reply.KindLocation:
		msg.Location = &OutboundLocation{
			Latitude:  spec.Latitude,
			Longitude: spec.Longitude,
			Name:      spec.Name,
			Address:   spec.Address,
		}
	case reply.KindDocument:
		msg.Document = &OutboundMedia{Link: spec.URL, Caption: spec.Caption}
	case reply.KindAudio:
		msg.Audio = &OutboundMedia{Link: spec.URL}
	}
	return msg, nil
}
