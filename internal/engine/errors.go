package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies backup engine failures.
type ErrorKind string

const (
	// Fatal kinds abort the run.
	ErrorKindConfigurationMissing ErrorKind = "CONFIGURATION_MISSING"
	ErrorKindAlreadyRunning       ErrorKind = "ALREADY_RUNNING"
	ErrorKindRemoteUnreachable    ErrorKind = "REMOTE_UNREACHABLE"
	ErrorKindInsufficientSpace    ErrorKind = "INSUFFICIENT_SPACE"

	// Recoverable kinds are logged and isolated to one source or period.
	ErrorKindSourceSync  ErrorKind = "SOURCE_SYNC_FAILURE"
	ErrorKindCompression ErrorKind = "COMPRESSION_FAILURE"
	ErrorKindTransfer    ErrorKind = "TRANSFER_FAILURE"
)

// EngineError represents errors raised by the backup lifecycle engine.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether the error must abort the whole run. Everything
// else is isolated to its specific source or period and does not cascade.
func (e *EngineError) IsFatal() bool {
	switch e.Kind {
	case ErrorKindConfigurationMissing, ErrorKindAlreadyRunning,
		ErrorKindRemoteUnreachable, ErrorKindInsufficientSpace:
		return true
	default:
		return false
	}
}

// NewEngineError creates a new EngineError
func NewEngineError(kind ErrorKind, message string, cause error) *EngineError {
	return &EngineError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors
func NewConfigurationMissingError(message string, cause error) *EngineError {
	return NewEngineError(ErrorKindConfigurationMissing, message, cause)
}

func NewAlreadyRunningError(message string, cause error) *EngineError {
	return NewEngineError(ErrorKindAlreadyRunning, message, cause)
}

func NewRemoteUnreachableError(message string, cause error) *EngineError {
	return NewEngineError(ErrorKindRemoteUnreachable, message, cause)
}

func NewInsufficientSpaceError(message string, cause error) *EngineError {
	return NewEngineError(ErrorKindInsufficientSpace, message, cause)
}

func NewSourceSyncError(message string, cause error) *EngineError {
	return NewEngineError(ErrorKindSourceSync, message, cause)
}

func NewCompressionError(message string, cause error) *EngineError {
	return NewEngineError(ErrorKindCompression, message, cause)
}

func NewTransferError(message string, cause error) *EngineError {
	return NewEngineError(ErrorKindTransfer, message, cause)
}

// KindOf returns the kind of an engine error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Kind
	}
	return ""
}

// IsFatal reports whether err is a fatal engine error. Foreign errors are
// treated as fatal: an error the engine cannot classify must not be
// silently downgraded to a recoverable one.
func IsFatal(err error) bool {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.IsFatal()
	}
	return true
}
