// Package netutil decides which Telegram API failures are transient.
package netutil

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	tele "gopkg.in/telebot.v4"
)

// maxRetryAfter caps the wait a flood error may impose on a single send.
const maxRetryAfter = 10 * time.Second

// ShouldRetry reports whether a failed Telegram call is worth repeating:
// dial and timeout failures, flood control and 5xx responses.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return true
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Timeout() || opErr.Op == "dial") {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
		return ShouldRetry(urlErr.Err)
	}
	return false
}

// RetryAfter returns the wait requested by Telegram flood control, or zero.
func RetryAfter(err error) time.Duration {
	var floodErr tele.FloodError
	if !errors.As(err, &floodErr) || floodErr.RetryAfter <= 0 {
		return 0
	}
	return min(time.Duration(floodErr.RetryAfter)*time.Second, maxRetryAfter)
}
