// Package faults defines the error taxonomy shared by the verification
// pipeline. Orchestrators translate every provider, codec, and store error
// into one of these kinds before it reaches an audit log or a caller.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// InputInvalid is a client error (malformed image, token, or missing
	// consent). Not retryable.
	InputInvalid Kind = "input_invalid"

	// ThresholdNotMet means a document, face, or liveness score fell below
	// its acceptance floor. Recoverable by re-capture.
	ThresholdNotMet Kind = "threshold_not_met"

	// ProviderTimeout means the external verification capability did not
	// answer in time. Retryable on read paths only.
	ProviderTimeout Kind = "provider_timeout"

	// ProviderUnavailable means the external verification capability failed
	// outright.
	ProviderUnavailable Kind = "provider_unavailable"

	// CredentialInvalid covers bad signatures, expired tokens, and wrong
	// credential status. Always logged.
	CredentialInvalid Kind = "credential_invalid"

	// StateConflict covers ordering violations such as AlreadyProcessed and
	// AlreadyBoarded. Never silently resolved.
	StateConflict Kind = "state_conflict"

	// NotFound means the referenced record does not exist.
	NotFound Kind = "not_found"

	// Internal is everything else. Details stay out of client responses.
	Internal Kind = "internal"
)

// Fault is a classified error with a human-readable reason. The reason is
// safe to surface to callers; raw provider payloads never go in here.
type Fault struct {
	Kind   Kind
	Reason string
	err    error
}

func (f *Fault) Error() string {
	if f.err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Reason, f.err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Fault) Unwrap() error { return f.err }

// New creates a Fault with the given kind and reason.
func New(kind Kind, reason string) *Fault {
	return &Fault{Kind: kind, Reason: reason}
}

// Newf creates a Fault with a formatted reason.
func Newf(kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The underlying error is preserved for
// errors.Is/As but excluded from client-facing output.
func Wrap(err error, kind Kind, reason string) *Fault {
	return &Fault{Kind: kind, Reason: reason, err: err}
}

// KindOf reports the taxonomy kind of err, or Internal if err is not a Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Internal
}

// Is reports whether err is a Fault of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Reason returns the safe human-readable reason of err, or a generic message
// for unclassified errors.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Reason
	}
	return "internal error"
}

// Retryable reports whether the fault kind may be retried automatically.
// Only provider timeouts and outages qualify, and only on idempotent read
// paths; enrollment issuance never retries.
func Retryable(err error) bool {
	switch KindOf(err) {
	case ProviderTimeout, ProviderUnavailable:
		return true
	}
	return false
}
