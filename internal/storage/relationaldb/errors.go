package relationaldb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Configuration errors
	ErrInvalidDriver         = errors.New("invalid database driver")
	ErrMissingHost           = errors.New("database host is required")
	ErrMissingDatabase       = errors.New("database name is required")
	ErrInvalidPort           = errors.New("invalid database port")
	ErrInvalidPoolSize       = errors.New("connection pool sizes must be >= 0")
	ErrMaxIdleExceedsMaxOpen = errors.New("max idle connections cannot exceed max open connections")
	ErrInvalidTimeout        = errors.New("timeout must be positive")
	ErrInvalidRetry          = errors.New("retry settings must be >= 0")

	ErrDatabaseClosed = errors.New("database connection is closed")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrInvalidLimit   = errors.New("invalid query limit")
)

// Kind classifies database failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindConnection
	KindTransaction
	KindConstraint
	KindQuery
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnection:
		return "connection"
	case KindTransaction:
		return "transaction"
	case KindConstraint:
		return "constraint"
	case KindQuery:
		return "query"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Error is a failed database operation.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

// NewError builds an Error.
func NewError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrDuplicateEntry against constraint failures reported by the
// driver.
func (e *Error) Is(target error) bool {
	return target == ErrDuplicateEntry && e.Kind == KindConstraint
}

// Retryable reports whether repeating the operation may succeed.
func (e *Error) Retryable() bool {
	if e.Kind == KindConnection {
		return true
	}
	if e.Kind == KindTransaction && e.Err != nil {
		msg := strings.ToLower(e.Err.Error())
		return strings.Contains(msg, "deadlock") || strings.Contains(msg, "locked") || strings.Contains(msg, "busy")
	}
	return false
}

// IsRetryable reports whether err is a retryable database error.
func IsRetryable(err error) bool {
	var dbErr *Error
	return errors.As(err, &dbErr) && dbErr.Retryable()
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Kind
	}
	return KindUnknown
}

// Classify wraps a driver error, guessing its kind from the message. An
// *Error keeps its kind and takes the new operation name.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return &Error{Op: op, Kind: dbErr.Kind, Err: dbErr.Err}
	}

	msg := strings.ToLower(err.Error())
	kind := KindUnknown
	switch {
	case strings.Contains(msg, "connection") || strings.Contains(msg, "connect"):
		kind = KindConnection
	case strings.Contains(msg, "constraint") || strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique"):
		kind = KindConstraint
	case strings.Contains(msg, "deadlock") || strings.Contains(msg, "locked") || strings.Contains(msg, "busy") || strings.Contains(msg, "transaction"):
		kind = KindTransaction
	case strings.Contains(msg, "no such table") || strings.Contains(msg, "does not exist") || strings.Contains(msg, "column"):
		kind = KindSchema
	case strings.Contains(msg, "syntax"):
		kind = KindQuery
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
