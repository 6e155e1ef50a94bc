package database

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the SurrealDB stores. Use errors.Is to check them.
var (
	ErrNotConnected = errors.New("database not connected")
	ErrNotFound     = errors.New("record not found")
	ErrQueryFailed  = errors.New("query execution failed")
	ErrDuplicate    = errors.New("unique index violated")
)

// DBError adds the failing operation and query to a driver error.
type DBError struct {
	err     error
	context string
	query   string
}

// NewDBError creates a DBError describing what was being attempted.
func NewDBError(err error, context string) *DBError {
	return &DBError{err: err, context: context}
}

// WithQuery records the statement that failed.
func (e *DBError) WithQuery(query string) *DBError {
	e.query = query
	return e
}

func (e *DBError) Error() string {
	msg := e.context
	if e.query != "" {
		msg = fmt.Sprintf("%s (query: %s)", msg, strings.Join(strings.Fields(e.query), " "))
	}
	if e.err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}

func (e *DBError) Unwrap() error {
	return e.err
}

// WrapError wraps err with context. A nil err stays nil.
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		dbErr.context = fmt.Sprintf("%s: %s", context, dbErr.context)
		return dbErr
	}
	return NewDBError(err, context)
}

// isDuplicateError reports whether err came from a unique index rejecting a write.
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already contains") || strings.Contains(msg, "already exists")
}
