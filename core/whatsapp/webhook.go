package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/m3rciful/hmbot/core/logger"
)

// EventReceived is the acknowledgement body Meta expects.
const EventReceived = "EVENT_RECEIVED"

const defaultMaxBody = 1 << 20

// ErrInvalidSignature is reported when X-Hub-Signature-256 does not match the body.
var ErrInvalidSignature = errors.New("whatsapp: invalid webhook signature")

// MessageHandler receives extracted messages. HandleMessage must not block
// on the conversation: the webhook acknowledges only after it returns.
type MessageHandler interface {
	HandleMessage(ctx context.Context, in Inbound)
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(ctx context.Context, in Inbound)

// HandleMessage calls f.
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, in Inbound) { f(ctx, in) }

// Recorder observes webhook traffic. A nil Recorder is allowed.
type Recorder interface {
	ObserveInbound(kind, status string)
}

// WebhookOptions configures a WebhookHandler.
type WebhookOptions struct {
	VerifyToken string
	// AppSecret enables signature checks on POST bodies when non-empty.
	AppSecret    string
	Handler      MessageHandler
	Recorder     Recorder
	MaxBodyBytes int64
}

// WebhookHandler serves the verification handshake and event delivery.
type WebhookHandler struct {
	opts WebhookOptions
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(opts WebhookOptions) *WebhookHandler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	return &WebhookHandler{opts: opts}
}

// Verify answers the GET subscription challenge. A missing challenge or a
// token mismatch gets 400.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	ok := challenge != "" && token != "" &&
		(mode == "" || mode == "subscribe") &&
		hmac.Equal([]byte(token), []byte(h.opts.VerifyToken))
	if !ok {
		logger.Warn(r.Context(), component, "webhook.verify",
			slog.String("status", "fail"),
			slog.String("mode", mode),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	logger.Info(r.Context(), component, "webhook.verify", slog.String("status", "ok"))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// Receive acknowledges a POSTed event and hands its first message to the
// configured handler. Malformed envelopes are acknowledged and dropped so
// Meta does not redeliver them; only a bad signature is refused.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		logger.Warn(ctx, component, "webhook.read", slog.String("err", err.Error()))
		h.observe("unknown", "malformed")
		ack(w)
		return
	}

	if h.opts.AppSecret != "" {
		if err := VerifySignature(h.opts.AppSecret, body, r.Header.Get("X-Hub-Signature-256")); err != nil {
			logger.Warn(ctx, component, "webhook.signature", slog.String("status", "fail"))
			h.observe("unknown", "bad_signature")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		logger.Warn(ctx, component, "webhook.decode",
			slog.String("err", logger.SanitizeLimit(err.Error(), 200)),
		)
		h.observe("unknown", "malformed")
		ack(w)
		return
	}

	in, statuses, err := ExtractMessage(ev)
	for _, st := range statuses {
		logStatus(ctx, st)
	}
	switch {
	case errors.Is(err, ErrNoMessage):
		if len(statuses) > 0 {
			h.observe("status", "ok")
		} else {
			h.observe("unknown", "empty")
		}
		ack(w)
		return
	case err != nil:
		logger.Warn(ctx, component, "webhook.extract", slog.String("err", err.Error()))
		h.observe("unknown", "malformed")
		ack(w)
		return
	}

	status := "ok"
	if !in.Supported() {
		status = "unsupported"
	}
	h.observe(in.Type, status)

	if h.opts.Handler != nil {
		h.opts.Handler.HandleMessage(context.WithoutCancel(ctx), in)
	}
	ack(w)
}

func (h *WebhookHandler) observe(kind, status string) {
	if h.opts.Recorder != nil {
		h.opts.Recorder.ObserveInbound(kind, status)
	}
}

func ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, EventReceived)
}

func logStatus(ctx context.Context, st Status) {
	attrs := []slog.Attr{
		slog.String("wamid", st.ID),
		slog.String("delivery", st.Status),
		slog.String("to", st.RecipientID),
	}
	if len(st.Errors) > 0 {
		attrs = append(attrs,
			slog.Int("err_code", st.Errors[0].Code),
			slog.String("err", st.Errors[0].Title),
		)
		logger.Warn(ctx, component, "delivery.status", attrs...)
		return
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, component, "delivery.status", attrs...)
	}
}

// VerifySignature checks an X-Hub-Signature-256 header ("sha256=<hex>")
// against the HMAC-SHA256 of body keyed with appSecret.
func VerifySignature(appSecret string, body []byte, header string) error {
	sigHex, ok := strings.CutPrefix(header, "sha256=")
	if appSecret == "" || !ok || sigHex == "" {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, Sign(appSecret, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 of body keyed with appSecret.
func Sign(appSecret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return mac.Sum(nil)
}
