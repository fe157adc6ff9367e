package netutil

import (
	"errors"
	"net"
	"net/http"
	"net/url"
)

// StatusCoder is implemented by API errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// ShouldRetry reports whether an outbound error is worth retrying.
// Transient dial and timeout failures qualify, as do 429 and 5xx
// answers from the messaging API.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if status := StatusFromError(err); status != 0 {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
		var nested net.Error
		if errors.As(opErr.Err, &nested) && nested.Timeout() {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return ShouldRetry(urlErr.Err)
		}
	}

	return false
}

// IsDialFailure reports whether err happened before a connection was
// established, so resending cannot duplicate a delivered request.
func IsDialFailure(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// StatusFromError extracts an HTTP status from err, or 0.
func StatusFromError(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}
