package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCandidateNotFound is returned when a candidate cannot be found in the database
	ErrCandidateNotFound = errors.New("candidate not found")

	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrQuotaNotFound is returned when a user has no quota row
	ErrQuotaNotFound = errors.New("quota not found")

	// ErrObjectNotFound is returned by the blob store when the object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrNoRowsUpdated is returned when an update matched no rows
	ErrNoRowsUpdated = errors.New("no rows updated")
)

// Kind classifies analysis failures. The string value is what callers see.
type Kind string

const (
	KindUnauthorized           Kind = "Unauthorized"
	KindInvalidArgument        Kind = "InvalidArgument"
	KindNotFound               Kind = "NotFound"
	KindInvalidJobContext      Kind = "InvalidJobContext"
	KindMissingResume          Kind = "MissingResume"
	KindFetchError             Kind = "FetchError"
	KindRateLimited            Kind = "RateLimited"
	KindQuotaExhausted         Kind = "QuotaExhausted"
	KindTransientProviderError Kind = "TransientProviderError"
	KindPermanentProviderError Kind = "PermanentProviderError"
	KindPersistenceError       Kind = "PersistenceError"
	// KindTimeout means the caller's deadline or cancellation cut the analysis short.
	KindTimeout Kind = "Timeout"
)

// Temporary reports whether retrying the whole operation later may succeed.
func (k Kind) Temporary() bool {
	switch k {
	case KindRateLimited, KindTransientProviderError, KindTimeout:
		return true
	default:
		return false
	}
}

// Error is the typed failure returned by the analysis pipeline
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Temporary reports whether the error is safe to retry later
func (e *Error) Temporary() bool {
	return e.Kind.Temporary()
}

// NewError creates a new typed analysis error
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind carried by err, or an empty Kind when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTemporary reports whether err carries a temporary Kind.
func IsTemporary(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Temporary()
	}
	return false
}

// ErrorMessage returns the caller-facing detail of err.
func ErrorMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
