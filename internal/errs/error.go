package errs

import "errors"

// Error is a classified failure: exactly one kind sentinel plus a message
// that is safe to show to the client. Cause is kept for logs only.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// New returns a classified error of the given kind.
func New(kind error, msg string) error { return &Error{Kind: kind, Msg: msg} }

// Validation reports malformed or missing input.
func Validation(msg string) error { return New(ErrValidation, msg) }

// Conflict reports a uniqueness violation.
func Conflict(msg string) error { return New(ErrAlreadyExists, msg) }

// Auth reports bad credentials or a bad/expired/missing token.
func Auth(msg string) error { return New(ErrUnauthorized, msg) }

// Forbidden reports an ownership mismatch.
func Forbidden(msg string) error { return New(ErrForbidden, msg) }

// NotFound reports a missing entity.
func NotFound(msg string) error { return New(ErrNotFound, msg) }

// Internal reports an unexpected failure with a curated client message.
func Internal(msg string, cause error) error {
	return &Error{Kind: ErrInternal, Msg: msg, Cause: cause}
}

// Message returns the client-facing message of a classified error and
// false for anything unclassified.
func Message(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg, true
	}
	return "", false
}
