package users

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies every failure a Repository can report.
type Kind int

const (
	KindUnknown Kind = iota
	// KindLock means the store guard is in an inconsistent (poisoned) state
	// or the backend itself failed. Not retriable without recovery.
	KindLock
	KindAlreadyExists
	KindDoesNotExist
	KindInvalidID
)

func (k Kind) String() string {
	switch k {
	case KindLock:
		return "lock error"
	case KindAlreadyExists:
		return "already exists"
	case KindDoesNotExist:
		return "does not exist"
	case KindInvalidID:
		return "invalid id"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by Repository implementations.
type Error struct {
	Kind   Kind
	ID     uuid.UUID
	Detail string
	// Err is the backend failure behind a KindLock error, if any.
	Err error
}

var (
	ErrLock          = &Error{Kind: KindLock}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists}
	ErrDoesNotExist  = &Error{Kind: KindDoesNotExist}
	ErrInvalidID     = &Error{Kind: KindInvalidID}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.ID != uuid.Nil {
		msg = fmt.Sprintf("user %s: %s", e.ID, msg)
	}
	switch {
	case e.Detail != "":
		msg += ": " + e.Detail
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, ErrDoesNotExist) works regardless of ID and Detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewLockError(detail string) *Error {
	return &Error{Kind: KindLock, Detail: detail}
}

// WrapLockError turns a backend failure into a KindLock error.
func WrapLockError(err error) *Error {
	return &Error{Kind: KindLock, Err: err}
}

func NewAlreadyExistsError(id uuid.UUID) *Error {
	return &Error{Kind: KindAlreadyExists, ID: id}
}

func NewDoesNotExistError(id uuid.UUID) *Error {
	return &Error{Kind: KindDoesNotExist, ID: id}
}

func NewInvalidIDError(id uuid.UUID) *Error {
	return &Error{Kind: KindInvalidID, ID: id}
}

// KindOf returns the Kind of err, or KindUnknown if err is not a repository error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
