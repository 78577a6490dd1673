// Package errors defines structured error types and handling utilities for the
// RiskGraph engine. Errors carry a stable code, an HTTP status for the
// interface layer, and structured metadata so failures are actionable without
// re-running the computation that produced them.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable classification of an error.
type Code string

const (
	// CodeEntityNotFound indicates a referenced entity id is absent from the snapshot.
	CodeEntityNotFound Code = "entity_not_found"

	// CodeSimulationNotFound indicates an unknown simulation run id.
	CodeSimulationNotFound Code = "simulation_not_found"

	// CodeInvalidConfig indicates out-of-range simulation or tenant parameters.
	CodeInvalidConfig Code = "invalid_config"

	// CodeInvalidRequest indicates a malformed request from the caller.
	CodeInvalidRequest Code = "invalid_request"

	// CodeTimeout indicates a run exceeded its wall-clock ceiling.
	CodeTimeout Code = "timeout"

	// CodePartialFailure indicates a sub-computation was skipped; the run
	// continued and finished with warnings.
	CodePartialFailure Code = "partial_failure"

	// CodeNotFound indicates a generic missing resource.
	CodeNotFound Code = "not_found"

	// CodeConflict indicates a conflict with current resource state.
	CodeConflict Code = "conflict"

	// CodeInternal indicates an unexpected internal failure.
	CodeInternal Code = "internal"
)

// AppError is the structured application error used across the engine.
type AppError struct {
	code    Code
	message string
	cause   error
	details map[string]interface{}
}

// New creates a new AppError with the given code and message.
func New(code Code, format string, args ...interface{}) *AppError {
	return &AppError{
		code:    code,
		message: fmt.Sprintf(format, args...),
		details: make(map[string]interface{}),
	}
}

// Wrap wraps an underlying error with a code and message.
func Wrap(err error, code Code, format string, args ...interface{}) *AppError {
	e := New(code, format, args...)
	e.cause = err
	return e
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *AppError) Code() Code {
	return e.code
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithDetail attaches a structured context value and returns the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	e.details[key] = value
	return e
}

// Details returns the structured context attached to the error.
func (e *AppError) Details() map[string]interface{} {
	return e.details
}

// HTTPStatus maps the error code to an HTTP status for the interface layer.
func (e *AppError) HTTPStatus() int {
	switch e.code {
	case CodeEntityNotFound, CodeSimulationNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidConfig, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ================================================================================
// Domain-Specific Constructors
// ================================================================================

// ErrEntityNotFound creates an entity_not_found error for a snapshot miss.
func ErrEntityNotFound(entityID string) *AppError {
	return New(CodeEntityNotFound, "entity not found in snapshot: %s", entityID).
		WithDetail("entity_id", entityID)
}

// ErrSimulationNotFound creates a simulation_not_found error.
func ErrSimulationNotFound(runID string) *AppError {
	return New(CodeSimulationNotFound, "simulation run not found: %s", runID).
		WithDetail("run_id", runID)
}

// ErrInvalidConfig creates an invalid_config error for an out-of-range parameter.
func ErrInvalidConfig(param string, reason string) *AppError {
	return New(CodeInvalidConfig, "invalid configuration: %s %s", param, reason).
		WithDetail("parameter", param)
}

// ErrTimeout creates a timeout error for a run that exceeded its ceiling.
func ErrTimeout(runID string) *AppError {
	return New(CodeTimeout, "simulation run exceeded its time ceiling: %s", runID).
		WithDetail("run_id", runID)
}

// ================================================================================
// Predicates
// ================================================================================

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.code == code
	}
	return false
}

// IsNotFound reports whether err is any of the not-found variants.
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		switch appErr.code {
		case CodeEntityNotFound, CodeSimulationNotFound, CodeNotFound:
			return true
		}
	}
	return false
}
