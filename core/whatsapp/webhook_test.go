package whatsapp

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textEvent = `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{"messaging_product":"whatsapp","messages":[{"from":"5218441234567","id":"wamid.IN","type":"text","text":{"body":"Hola"}}]}}]}]}`

type capture struct {
	mu  sync.Mutex
	got []Inbound
}

func (c *capture) HandleMessage(_ context.Context, in Inbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, in)
}

type inboundRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *inboundRecorder) ObserveInbound(kind, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, kind+"/"+status)
}

func TestVerify(t *testing.T) {
	h := NewWebhookHandler(WebhookOptions{VerifyToken: "tok"})

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"subscribe", "hub.mode=subscribe&hub.verify_token=tok&hub.challenge=42", http.StatusOK, "42"},
		{"mode omitted", "hub.verify_token=tok&hub.challenge=abc", http.StatusOK, "abc"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", http.StatusBadRequest, ""},
		{"missing challenge", "hub.mode=subscribe&hub.verify_token=tok", http.StatusBadRequest, ""},
		{"other mode", "hub.mode=unsubscribe&hub.verify_token=tok&hub.challenge=42", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Verify(rec, httptest.NewRequest(http.MethodGet, "/api?"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestReceiveDeliversFirstMessage(t *testing.T) {
	c := &capture{}
	r := &inboundRecorder{}
	h := NewWebhookHandler(WebhookOptions{Handler: c, Recorder: r})

	rec := httptest.NewRecorder()
	h.Receive(rec, httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(textEvent)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, EventReceived, rec.Body.String())
	require.Len(t, c.got, 1)
	assert.Equal(t, Inbound{MessageID: "wamid.IN", From: "5218441234567", Type: "text", Text: "Hola"}, c.got[0])
	assert.Equal(t, []string{"text/ok"}, r.seen)
}

func TestReceiveAcknowledgesWithoutMessage(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status string
	}{
		{"malformed json", `{"entry":`, "unknown/malformed"},
		{"empty object", `{}`, "unknown/empty"},
		{"status only", `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.X","status":"read","recipient_id":"1"}]}}]}]}`, "status/ok"},
		{"no sender", `{"entry":[{"changes":[{"value":{"messages":[{"id":"wamid.X","type":"text","text":{"body":"x"}}]}}]}]}`, "unknown/malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &capture{}
			r := &inboundRecorder{}
			h := NewWebhookHandler(WebhookOptions{Handler: c, Recorder: r})

			rec := httptest.NewRecorder()
			h.Receive(rec, httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, EventReceived, rec.Body.String())
			assert.Empty(t, c.got)
			assert.Equal(t, []string{tt.status}, r.seen)
		})
	}
}

func TestReceiveUnsupportedMessage(t *testing.T) {
	c := &capture{}
	r := &inboundRecorder{}
	h := NewWebhookHandler(WebhookOptions{Handler: c, Recorder: r})

	body := `{"entry":[{"changes":[{"value":{"messages":[{"from":"52","id":"wamid.S","type":"sticker"}]}}]}]}`
	rec := httptest.NewRecorder()
	h.Receive(rec, httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, c.got, 1)
	assert.Equal(t, UnsupportedSentinel, c.got[0].Text)
	assert.Equal(t, []string{"sticker/unsupported"}, r.seen)
}

func TestReceiveSignature(t *testing.T) {
	const secret = "app-secret"
	c := &capture{}
	h := NewWebhookHandler(WebhookOptions{AppSecret: secret, Handler: c})

	bad := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(textEvent))
	bad.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	h.Receive(rec, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, c.got)

	missing := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(textEvent))
	rec = httptest.NewRecorder()
	h.Receive(rec, missing)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	good := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(textEvent))
	good.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(Sign(secret, []byte(textEvent))))
	rec = httptest.NewRecorder()
	h.Receive(rec, good)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, c.got, 1)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"a":1}`)
	sig := "sha256=" + hex.EncodeToString(Sign("s", body))

	assert.NoError(t, VerifySignature("s", body, sig))
	assert.ErrorIs(t, VerifySignature("other", body, sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("s", []byte(`{"a":2}`), sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("s", body, "sha1=abc"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("s", body, "sha256=zz"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("", body, sig), ErrInvalidSignature)
}
