package apperror

import "errors"

// Kind classifies an AppError for callers that need more than the HTTP status.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindDurationExceeded  Kind = "duration_exceeded"
	KindConflict          Kind = "conflict"
	KindAuthorization     Kind = "authorization"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal"
)

// AppError is a custom error type that includes an HTTP status code and an optional internal error code.
type AppError struct {
	Code    int            // HTTP Status Code (e.g., 400, 404)
	Kind    Kind           // Error class, see the Kind constants
	Message string         // User-facing error message
	Details map[string]any // Optional structured context exposed to the user
	Err     error          // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same kind and message.
// This lets errors.Is match sentinel values even when they were copied with WithDetails.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New creates a new AppError with a status code and message.
func New(code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithDetails returns a copy of e carrying the given details.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// KindOf returns the Kind of err, or KindInternal if err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
