package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeFetch represents failures loading a conversation graph
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeEdit represents failures persisting an entity or relation edit
	ErrorTypeEdit ErrorType = "edit"
	// ErrorTypeView represents view session errors
	ErrorTypeView ErrorType = "view"
	// ErrorTypeInput represents malformed caller input
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Fetch Errors

// ErrFetchFailed is returned when a conversation graph could not be loaded.
// The previously applied snapshot stays in place.
type ErrFetchFailed struct {
	*BaseError
	ConversationID string
}

func NewFetchFailed(conversationID string, err error) *ErrFetchFailed {
	return &ErrFetchFailed{
		BaseError:      NewBaseError(ErrorTypeFetch, fmt.Sprintf("failed to fetch conversation graph: %s", conversationID), err),
		ConversationID: conversationID,
	}
}

// ErrStaleFetch is returned when a fetch result arrives after a newer request
// (or a conversation switch) superseded it.
var ErrStaleFetch = NewBaseError(ErrorTypeFetch, "fetch result superseded by a newer request", nil)

// Graph Errors

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// ErrRecordNotFound is returned when an entity or relation id does not exist
type ErrRecordNotFound struct {
	*BaseError
	Kind string
	ID   int64
}

func NewRecordNotFound(kind string, id int64) *ErrRecordNotFound {
	return &ErrRecordNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("%s not found: %d", kind, id), nil),
		Kind:      kind,
		ID:        id,
	}
}

// Edit Errors

// ErrEditFailed is returned when the data layer rejects an edit
type ErrEditFailed struct {
	*BaseError
	Kind string
	ID   int64
}

func NewEditFailed(kind string, id int64, err error) *ErrEditFailed {
	return &ErrEditFailed{
		BaseError: NewBaseError(ErrorTypeEdit, fmt.Sprintf("failed to edit %s %d", kind, id), err),
		Kind:      kind,
		ID:        id,
	}
}

// View Errors

// ErrViewNotFound is returned when a view session id is unknown or expired
type ErrViewNotFound struct {
	*BaseError
	ViewID string
}

func NewViewNotFound(viewID string) *ErrViewNotFound {
	return &ErrViewNotFound{
		BaseError: NewBaseError(ErrorTypeView, fmt.Sprintf("view not found: %s", viewID), nil),
		ViewID:    viewID,
	}
}

// ErrViewClosed is returned for operations on a closed view
var ErrViewClosed = NewBaseError(ErrorTypeView, "view is closed", nil)

// Input Errors

// ErrInvalidInput is returned when caller input cannot be interpreted
type ErrInvalidInput struct {
	*BaseError
	Field  string
	Reason string
}

func NewInvalidInput(field, reason string) *ErrInvalidInput {
	return &ErrInvalidInput{
		BaseError: NewBaseError(ErrorTypeInput, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Context Errors

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Helper functions

// IsErrorType checks if an error (or anything it wraps) is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if baseErr := asBase(err); baseErr != nil && baseErr.Type == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// Input errors will fail again with the same input
	if IsErrorType(err, ErrorTypeInput) {
		return false
	}
	var notFound *ErrRecordNotFound
	if stderrors.As(err, &notFound) {
		return false
	}
	// Fetch and graph connection errors are retryable
	return IsErrorType(err, ErrorTypeFetch) || IsErrorType(err, ErrorTypeGraph)
}

func asBase(err error) *BaseError {
	switch e := err.(type) {
	case *BaseError:
		return e
	case *ErrFetchFailed:
		return e.BaseError
	case *ErrGraphQueryFailed:
		return e.BaseError
	case *ErrRecordNotFound:
		return e.BaseError
	case *ErrEditFailed:
		return e.BaseError
	case *ErrViewNotFound:
		return e.BaseError
	case *ErrInvalidInput:
		return e.BaseError
	case *ErrContextTimeout:
		return e.BaseError
	case *ErrConfigValidationFailed:
		return e.BaseError
	}
	return nil
}
