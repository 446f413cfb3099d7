package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// KindFromStatus maps an upstream HTTP status to a failure kind. Anything
// that is not an auth or throttling problem counts as an invalid response;
// the router treats all kinds the same way (advance to next candidate).
func KindFromStatus(status int) FailureKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureUnauthorized
	case http.StatusTooManyRequests:
		return FailureRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return FailureTimeout
	}
	return FailureInvalidResponse
}

// IsTimeout reports whether the error is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// AsError extracts the typed adapter failure from an error chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
