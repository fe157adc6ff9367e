// Package reply describes outbound messages independently of any transport.
package reply

import (
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the payload carried by a Spec.
type Kind string

const (
	KindText     Kind = "text"
	KindLocation Kind = "location"
	KindDocument Kind = "document"
	KindAudio    Kind = "audio"
)

// ErrUnsupportedKind is returned for a Spec whose Kind is not one of the known kinds.
var ErrUnsupportedKind = errors.New("reply: unsupported kind")

// Spec is the abstract output of the dialogue engine.
// Only the fields matching Kind are meaningful.
type Spec struct {
	Kind Kind

	// text
	Body       string
	PreviewURL bool

	// location
	Latitude  float64
	Longitude float64
	Name      string
	Address   string

	// document, audio
	URL     string
	Caption string
}

// Text builds a plain text reply.
func Text(body string, previewURL bool) Spec {
	return Spec{Kind: KindText, Body: body, PreviewURL: previewURL}
}

// Location builds a map pin reply.
func Location(lat, lng float64, name, address string) Spec {
	return Spec{Kind: KindLocation, Latitude: lat, Longitude: lng, Name: name, Address: address}
}

// Document builds a document link reply.
func Document(url, caption string) Spec {
	return Spec{Kind: KindDocument, URL: url, Caption: caption}
}

// Audio builds an audio link reply.
func Audio(url string) Spec {
	return Spec{Kind: KindAudio, URL: url}
}

// Validate checks that the kind-specific fields are present.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindText:
		if strings.TrimSpace(s.Body) == "" {
			return fmt.Errorf("reply: text body is empty")
		}
	case KindLocation:
		if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
			return fmt.Errorf("reply: location out of range (%f, %f)", s.Latitude, s.Longitude)
		}
	case KindDocument, KindAudio:
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("reply: %s link is empty", s.Kind)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, s.Kind)
	}
	return nil
}
