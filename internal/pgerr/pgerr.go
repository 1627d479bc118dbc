// Package pgerr attaches PostgreSQL wire-error metadata (severity, SQLSTATE
// code) to plain Go errors, and flattens them back out when it is time to
// write an ErrorResponse.
package pgerr

import (
	"errors"

	"github.com/olapwire/pgshim/codes"
)

// Severity mirrors the handful of Postgres error severities this shim emits.
type Severity string

const (
	LevelError Severity = "ERROR"
	LevelFatal Severity = "FATAL"
)

// Flattened is the wire-ready shape of an error.
type Flattened struct {
	Severity Severity
	Code     codes.Code
	Message  string
}

type withSeverity struct {
	cause    error
	severity Severity
}

func (w *withSeverity) Error() string { return w.cause.Error() }
func (w *withSeverity) Unwrap() error { return w.cause }

// WithSeverity decorates err with a severity level.
func WithSeverity(err error, severity Severity) error {
	if err == nil {
		return nil
	}
	return &withSeverity{cause: err, severity: severity}
}

// GetSeverity walks the error chain for a previously attached severity.
func GetSeverity(err error) Severity {
	var w *withSeverity
	if errors.As(err, &w) {
		return w.severity
	}
	return ""
}

type withCode struct {
	cause error
	code  codes.Code
}

func (w *withCode) Error() string { return w.cause.Error() }
func (w *withCode) Unwrap() error { return w.cause }

// WithCode decorates err with a Postgres SQLSTATE code.
func WithCode(err error, code codes.Code) error {
	if err == nil {
		return nil
	}
	return &withCode{cause: err, code: code}
}

// GetCode walks the error chain for a previously attached code, defaulting
// to an internal/uncategorized code.
func GetCode(err error) codes.Code {
	var w *withCode
	if errors.As(err, &w) {
		return w.code
	}
	return codes.Internal
}

// Flatten reduces any error - wrapped with WithCode/WithSeverity or not -
// into the fields needed to write an ErrorResponse. Errors with no attached
// severity default to ERROR, never FATAL: only the startup/auth handlers
// explicitly mark a failure FATAL.
func Flatten(err error) Flattened {
	if err == nil {
		return Flattened{Severity: LevelFatal, Code: codes.Internal, Message: "unknown error"}
	}

	severity := GetSeverity(err)
	if severity == "" {
		severity = LevelError
	}

	return Flattened{
		Severity: severity,
		Code:     GetCode(err),
		Message:  err.Error(),
	}
}

// Internal wraps err (or constructs one from msg) as an ERROR-severity,
// internal_error-coded failure - the fallback used whenever a collaborator
// returns a bare error with no Postgres-specific annotation.
func Internal(msg string, err error) error {
	if err == nil {
		return WithCode(errors.New(msg), codes.Internal)
	}
	return WithCode(errors.New(msg+": "+err.Error()), codes.Internal)
}
