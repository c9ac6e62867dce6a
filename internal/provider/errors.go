package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a provider failure at the point the remote call
// fails, so callers never need to parse message text for the common
// cases.
type ErrorKind string

const (
	// KindAuth means the session token was rejected. Terminal; the user
	// must re-authenticate.
	KindAuth ErrorKind = "auth"

	// KindFunds means the wallet balance cannot cover the payment.
	// Terminal; the user must add funds.
	KindFunds ErrorKind = "funds"

	// KindNetwork covers connection, timeout, and transport failures.
	// Retryable.
	KindNetwork ErrorKind = "network"

	// KindProvider covers server-side provider failures (5xx and
	// unrecognized responses). Retryable.
	KindProvider ErrorKind = "provider"
)

// Error is a classified provider failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the failure is worth retrying.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindProvider
}

// Classify returns the error kind for any error. Typed provider errors
// carry their own classification; everything else falls back to
// substring matching on the message, defaulting to retryable. The
// fallback exists only for errors that did not pass through the
// provider adapter.
func Classify(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "insufficient", "balance too low", "no funds"):
		return KindFunds
	case containsAny(msg, "unauthorized", "invalid token", "invalid authorization", "forbidden", "401", "403"):
		return KindAuth
	case containsAny(msg, "timeout", "timed out", "connection reset", "connection refused", "no such host", "eof", "network"):
		return KindNetwork
	default:
		return KindProvider
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
