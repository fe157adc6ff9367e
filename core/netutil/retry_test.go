package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"canceled", context.Canceled, false},
		{"timeout", timeoutErr{}, true},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"read", &net.OpError{Op: "read", Err: errors.New("reset")}, false},
		{"url timeout", &url.Error{Op: "Post", URL: "https://x", Err: timeoutErr{}}, true},
		{"url dial", &url.Error{Op: "Post", URL: "https://x", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}, true},
		{"400", statusErr(400), false},
		{"401", fmt.Errorf("send: %w", statusErr(401)), false},
		{"429", statusErr(429), true},
		{"503", fmt.Errorf("send: %w", statusErr(503)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, 0, StatusFromError(nil))
	assert.Equal(t, 0, StatusFromError(errors.New("x")))
	assert.Equal(t, 502, StatusFromError(fmt.Errorf("wrapped: %w", statusErr(502))))
}

func TestIsDialFailure(t *testing.T) {
	assert.True(t, IsDialFailure(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, IsDialFailure(&url.Error{Op: "Post", URL: "https://x", Err: &net.DNSError{Name: "x"}}))
	assert.False(t, IsDialFailure(&net.OpError{Op: "read", Err: errors.New("reset")}))
	assert.False(t, IsDialFailure(timeoutErr{}))
	assert.False(t, IsDialFailure(nil))
}
