package inkyprovd

import (
	"errors"
	"fmt"
)

// ErrorKind is the wire-stable, machine-readable classification of a
// provisioning failure. Kinds are part of the transport contract and must
// not change between releases.
type ErrorKind string

const (
	// Handshake failures.
	ErrSessionConflict ErrorKind = "session_conflict"
	ErrInvalidCode     ErrorKind = "invalid_code"
	ErrSessionExpired  ErrorKind = "session_expired"

	// Wizard failures.
	ErrStepMismatch    ErrorKind = "step_mismatch"
	ErrStaleOAuthState ErrorKind = "stale_oauth_state"
	ErrApplierFailure  ErrorKind = "applier_failure"

	// Apply step failures. Persistence failure means the previous config
	// record is still intact; restart failure means config is durable but
	// the restart trigger didn't land.
	ErrPersistenceFailure   ErrorKind = "persistence_failure"
	ErrRestartSignalFailure ErrorKind = "restart_signal_failure"
)

// Error carries a stable kind plus a display-ready message. Authorization
// codes must never appear in the message.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errf builds a kinded error from a format string.
func Errf(kind ErrorKind, format string, a ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// KindOf extracts the ErrorKind from err, or "" if err carries none.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// asApplierFailure wraps a plain applier error in the applier_failure kind,
// passing pre-kinded errors through untouched so persistence and OAuth
// staleness keep their own classification.
func asApplierFailure(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: ErrApplierFailure, Message: err.Error()}
}
