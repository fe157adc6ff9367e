package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/hmbot/core/logger"
	"github.com/m3rciful/hmbot/core/reply"
)

const component = "whatsapp"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	Status    int
	Code      int
	Subcode   int
	Type      string
	Message   string
	FBTraceID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("whatsapp: graph api status %d", e.Status)
	}
	return fmt.Sprintf("whatsapp: graph api status %d: %s (code %d)", e.Status, e.Message, e.Code)
}

// StatusCode exposes the HTTP status for retry and error classification.
func (e *APIError) StatusCode() int { return e.Status }

// ClientConfig holds the Cloud API credentials.
type ClientConfig struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
}

// Client posts messages to the Cloud API.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	endpoint   string
}

// NewClient builds a client. A nil httpClient selects BuildHTTPClient defaults.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = BuildHTTPClient(0)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		endpoint:   fmt.Sprintf("%s/%s/%s/messages", base, cfg.APIVersion, cfg.PhoneNumberID),
	}
}

// Send delivers spec to the WhatsApp user to. Any 2xx answer is success.
func (c *Client) Send(ctx context.Context, to string, spec reply.Spec) error {
	msg, err := BuildMessage(to, spec)
	if err != nil {
		return fmt.Errorf("whatsapp: build message: %w", err)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	var sent SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil && err != io.EOF {
		logger.Warn(ctx, component, "send.decode",
			slog.String("err", err.Error()),
		)
	}
	attrs := []slog.Attr{
		slog.String("to", to),
		slog.String("type", msg.Type),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", logger.Took(start)),
	}
	if len(sent.Messages) > 0 {
		attrs = append(attrs, slog.String("wamid", sent.Messages[0].ID))
	}
	logger.Debug(ctx, component, "send.accepted", attrs...)
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Subcode = env.Error.ErrorSubcode
		apiErr.Type = env.Error.Type
		apiErr.Message = env.Error.Message
		apiErr.FBTraceID = env.Error.FBTraceID
	} else if len(data) > 0 {
		apiErr.Message = logger.SanitizeLimit(string(data), 200)
	}
	return apiErr
}
