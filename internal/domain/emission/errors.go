// Package emission defines the error kinds shared by the invoice emission
// workflow and its collaborators. Callers branch on these kinds instead of
// inspecting raw transport or driver errors.
package emission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when the invoice id is unknown
	ErrNotFound = errors.New("invoice not found")

	// ErrConflict is returned when the (number, series) pair already exists
	ErrConflict = errors.New("invoice number/series already exists")

	// ErrConcurrentModification is returned when a conditional status update
	// finds the invoice no longer in the expected state
	ErrConcurrentModification = errors.New("invoice modified concurrently")
)

// ValidationError carries every violated business rule, not just the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Violations, "; "))
}

// PreconditionError is returned when an operation is invoked from the wrong state.
type PreconditionError struct {
	Op      string
	Current workflow.State
	Message string
}

func (e *PreconditionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not allowed in status %s", e.Op, e.Current)
}

// TransportError wraps a network-level failure. Always retryable per preset.
// StatusCode is zero when the failure happened below HTTP.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteRejectionError means the webservice explicitly refused the document.
// Never retried.
type RemoteRejectionError struct {
	Code    string
	Message string
}

func (e *RemoteRejectionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rejected by webservice [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("rejected by webservice: %s", e.Message)
}

// SigningError means the transmittable document could not be prepared.
type SigningError struct {
	Stage string
	Err   error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing %s failed: %v", e.Stage, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// ResponseParseError means the webservice answered but the envelope could not
// be decoded into the expected shape. Never treated as a business failure.
type ResponseParseError struct {
	Op  string
	Err error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("%s: unparseable response: %v", e.Op, e.Err)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRetryableWebservice is the retry predicate for webservice calls: transport
// failures and remote 5xx retry, explicit rejections and client errors do not.
func IsRetryableWebservice(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if te.StatusCode == 0 {
		return true
	}
	return te.StatusCode >= 500 && te.StatusCode < 600
}

// IsRetryableDelivery is the retry predicate for notification delivery.
func IsRetryableDelivery(err error) bool {
	return IsTransport(err)
}

// IsRetryablePersistence matches the connection/timeout/deadlock error classes
// that make a database call worth retrying.
func IsRetryablePersistence(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"connection refused", "connection reset", "timeout", "deadline exceeded", "deadlock", "database is locked"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
