package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// UpstreamError is a non-2xx response from a provider endpoint. The body is
// kept verbatim so retry-exhausted failures can surface it to the user.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed with status %d: %s", e.Status, e.Body)
}

// IsTransient reports whether err belongs to the retryable failure class:
// HTTP 5xx, rate limiting (429), or a network-level failure. Cancellation
// and 4xx errors are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status == http.StatusTooManyRequests || upstream.Status >= 500
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// ErrorCode maps err to the coarse code recorded on a failed ghost proposal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		switch {
		case upstream.Status == http.StatusTooManyRequests:
			return "rate_limit"
		case upstream.Status >= 500:
			return "upstream"
		case upstream.Status == http.StatusUnauthorized || upstream.Status == http.StatusForbidden:
			return "auth"
		default:
			return "invalid_request"
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "network"
	}
	return "unknown"
}
