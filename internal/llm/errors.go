package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

// StatusOverloaded is the Anthropic Messages API's overloaded_error status.
const StatusOverloaded = 529

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	Wait       time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request: http %d: %s", e.Provider, e.StatusCode, textutil.Snippet(e.Body, 200))
}

// RetryAfter returns the server-provided wait, if any.
func (e *StatusError) RetryAfter() time.Duration {
	return e.Wait
}

// Is maps status codes onto the services markers.
func (e *StatusError) Is(target error) bool {
	switch target {
	case services.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case services.ErrOverloaded:
		return e.StatusCode == http.StatusServiceUnavailable || e.StatusCode == StatusOverloaded
	case services.ErrTransient:
		return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusRequestTimeout
	case services.ErrConfiguration:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// EmptyContentError reports a 2xx response without any text.
type EmptyContentError struct {
	Provider     string
	FinishReason string
	Snippet      string
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf("%s response: empty content (finish_reason=%q, response_snippet=%s)",
		e.Provider, e.FinishReason, e.Snippet)
}

// Is lets errors.Is match services.ErrParse.
func (e *EmptyContentError) Is(target error) bool {
	return target == services.ErrParse
}

// IsRateLimited reports an HTTP 429.
func IsRateLimited(err error) bool {
	return errors.Is(err, services.ErrRateLimited)
}

// IsOverloaded reports an HTTP 503.
func IsOverloaded(err error) bool {
	return errors.Is(err, services.ErrOverloaded)
}

// IsNetwork reports connection-level failures and timeouts. Cancellation of
// the caller's context is not a network error.
func IsNetwork(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return !errors.Is(urlErr.Err, context.Canceled)
	}
	return false
}

// IsTimeout reports network timeouts only.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Class names the error class used for retry policies and metrics.
func Class(err error) string {
	switch {
	case IsOverloaded(err):
		return "overloaded"
	case IsRateLimited(err):
		return "rate_limited"
	case IsNetwork(err):
		return "network"
	case errors.Is(err, services.ErrTransient):
		return "server"
	default:
		return "other"
	}
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay
		}
	}
	return 0
}
