package errors

import "fmt"

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrNotFound
	ErrValidation
	ErrUnauthorized
	ErrRoomFull
	ErrIllegalMove
	ErrDuplicateVote
	ErrStorage
)

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Constructor functions for common error types

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

func RoomFull(msg string) *Error {
	return &Error{Kind: ErrRoomFull, Message: msg}
}

func IllegalMove(msg string) *Error {
	return &Error{Kind: ErrIllegalMove, Message: msg}
}

func IllegalMovef(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrIllegalMove, Message: fmt.Sprintf(format, args...)}
}

func DuplicateVote(msg string) *Error {
	return &Error{Kind: ErrDuplicateVote, Message: msg}
}

// Storage wraps a persistence failure. Callers roll back the in-memory
// mutation before surfacing this, so state and storage never diverge.
func Storage(err error) *Error {
	return &Error{Kind: ErrStorage, Message: "storage error", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
