// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindDuplicate      ErrorKind = "duplicate"
	KindConflict       ErrorKind = "conflict"
	KindLocked         ErrorKind = "locked"
	KindUnauthorized   ErrorKind = "unauthorized"
	KindInfrastructure ErrorKind = "infrastructure"
)

// genericFailureMessage is the only text callers ever see for infrastructure failures.
const genericFailureMessage = "an unexpected error occurred, please try again"

// Error is the tagged failure returned by every service operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a service error. Anything that is not an *Error is an
// infrastructure failure.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInfrastructure
}

// PublicMessage returns the text that may be shown to an end user for err.
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != KindInfrastructure {
		return se.Message
	}
	return genericFailureMessage
}

func validationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func duplicateError(message string) *Error {
	return &Error{Kind: KindDuplicate, Message: message}
}

func conflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// storeFailure converts an error from the store into a service error. Errors that are
// already service errors pass through unchanged, unique violations become duplicates,
// foreign key violations become conflicts, and everything else is logged and reported as
// an infrastructure failure.
func storeFailure(op, key string, err error, duplicateMsg string) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}

	switch classifyStoreError(err) {
	case KindDuplicate:
		if duplicateMsg == "" {
			duplicateMsg = "record already exists"
		}
		return &Error{Kind: KindDuplicate, Message: duplicateMsg, Err: err}
	case KindConflict:
		return &Error{Kind: KindConflict, Message: "record is still referenced by other records", Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"op":  op,
		"key": key,
	}).WithError(err).Error("store operation failed")

	return &Error{Kind: KindInfrastructure, Message: genericFailureMessage, Err: err}
}

// classifyStoreError recognises constraint violations from gorm's error translation and
// from both PostgreSQL drivers.
func classifyStoreError(err error) ErrorKind {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return KindDuplicate
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return KindConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return KindDuplicate
		case "23503":
			return KindConflict
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return KindDuplicate
		case "23503":
			return KindConflict
		}
	}

	return KindInfrastructure
}
