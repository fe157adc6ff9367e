package logger

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// contextKey is a private type to avoid collisions in context.
type contextKey string

const (
	ctxRID       contextKey = "rid"
	ctxMessageID contextKey = "message_id"
	ctxSender    contextKey = "sender"
	ctxLogger    contextKey = "logger"
	ctxHandler   contextKey = "handler"
)

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext extracts slog.Logger from context or returns global default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if v := ctx.Value(ctxLogger); v != nil {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID attaches request correlation id into context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts rid from context if present.
func RIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRID)
}

// WithMessageMeta attaches the inbound message id and its sender to context.
// The sender is stored as received and masked when logged.
func WithMessageMeta(ctx context.Context, messageID, sender string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if messageID != "" {
		ctx = context.WithValue(ctx, ctxMessageID, messageID)
	}
	if sender != "" {
		ctx = context.WithValue(ctx, ctxSender, sender)
	}
	return ctx
}

// MessageIDFrom extracts the inbound message id from context.
func MessageIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxMessageID)
}

// SenderFrom extracts the unmasked sender from context.
func SenderFrom(ctx context.Context) string {
	return stringValue(ctx, ctxSender)
}

// WithHandler stores handler identifier in context for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxHandler, handler)
}

// HandlerFrom returns handler identifier from context if present.
func HandlerFrom(ctx context.Context) string {
	return stringValue(ctx, ctxHandler)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// Sanitize trims non-printable runes from s to keep logs clean.
// It removes control characters (Unicode categories Cc, Cf) except for tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	b := strings.Builder{}
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// MaskPhone hides all but the last four characters of a phone number.
func MaskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	r := []rune(phone)
	if len(r) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

// NewRID returns a fresh correlation identifier.
func NewRID() string {
	return uuid.NewString()
}

// CompactRID shortens long identifiers for readability. UUIDs keep their
// first group; WhatsApp message ids drop the "wamid." prefix and keep the
// trailing twelve characters. Anything else is returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	if rid == "" {
		return ""
	}
	if id, err := uuid.Parse(rid); err == nil {
		return strings.SplitN(id.String(), "-", 2)[0]
	}
	if rest, ok := strings.CutPrefix(rid, "wamid."); ok && rest != "" {
		if len(rest) > 12 {
			rest = rest[len(rest)-12:]
		}
		return rest
	}
	return rid
}
