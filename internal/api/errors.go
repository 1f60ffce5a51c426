package api

import (
	"fmt"
	"log"
)

// Kind classifies every gateway failure. Callers branch on the kind and
// never see transport-layer error shapes.
type Kind string

const (
	// KindServiceUnavailable covers network failures and 5xx responses.
	// Transient; the caller may retry.
	KindServiceUnavailable Kind = "service_unavailable"
	// KindMalformed means the response did not match the expected shape.
	// Non-retryable; indicates a backend contract mismatch.
	KindMalformed Kind = "malformed"
	// KindNotFound means the backend does not know the identity.
	KindNotFound Kind = "not_found"
	// KindInvalidIdentity means a candidate identity failed validation.
	KindInvalidIdentity Kind = "invalid_identity"
	// KindRejected means the server refused submitted data.
	KindRejected Kind = "rejected"
	// KindNoData means the result set is empty. Not a failure for
	// display purposes, but distinct from success with data.
	KindNoData Kind = "no_data"
)

// Failure is the single error type the gateway returns.
type Failure struct {
	Kind    Kind
	Op      string
	Message string
	cause   error
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", f.Op, f.Message, f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Kind)
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// KindOf extracts the failure kind, or "" for non-gateway errors.
func KindOf(err error) Kind {
	if f, ok := err.(*Failure); ok && f != nil {
		return f.Kind
	}
	return ""
}

// IsKind reports whether err is a gateway failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// fail logs the raw cause for diagnostics and returns the normalized
// failure. Every gateway operation funnels its errors through here.
func fail(op string, kind Kind, message string, cause error) *Failure {
	if cause != nil {
		log.Printf("api %s failed: kind=%s %v", op, kind, cause)
	} else {
		log.Printf("api %s failed: kind=%s %s", op, kind, message)
	}
	return &Failure{Kind: kind, Op: op, Message: message, cause: cause}
}
