package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a coursedesk error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrPlanNotFound       ErrorCode = "PLAN_NOT_FOUND"      // 404
	ErrConflict           ErrorCode = "CONFLICT"            // 409
	ErrPlanMalformed      ErrorCode = "PLAN_MALFORMED"      // 422
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrRemoteFailure      ErrorCode = "REMOTE_FAILURE"      // 502
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE" // 503
)

// DeskError represents a structured error with code, status, and details.
type DeskError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DeskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DeskError {
	return &DeskError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing entity.
func NewNotFound(kind, identifier string) *DeskError {
	return &DeskError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewPlanNotFound creates a 404 error when text carries no plan marker.
func NewPlanNotFound() *DeskError {
	return &DeskError{
		Code:    ErrPlanNotFound,
		Status:  404,
		Message: "no semester plan marker found in content",
	}
}

// NewPlanMalformed creates a 422 error when a plan marker holds invalid JSON.
func NewPlanMalformed(reason string) *DeskError {
	return &DeskError{
		Code:    ErrPlanMalformed,
		Status:  422,
		Message: fmt.Sprintf("semester plan marker is malformed: %s", reason),
		Details: map[string]any{"reason": reason},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *DeskError {
	return &DeskError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewRemoteFailure creates a 502 error for a failed remote function call.
func NewRemoteFailure(function string, status int, msg string) *DeskError {
	return &DeskError{
		Code:    ErrRemoteFailure,
		Status:  502,
		Message: fmt.Sprintf("remote function %q failed: %s", function, msg),
		Details: map[string]any{"function": function, "upstream_status": status},
	}
}

// NewStorageUnavailable creates a 503 error when the storage backend cannot be reached.
func NewStorageUnavailable(backend string, err error) *DeskError {
	msg := "storage unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &DeskError{
		Code:    ErrStorageUnavailable,
		Status:  503,
		Message: msg,
		Details: map[string]any{"backend": backend},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details for logging.
func NewInternal(err error) *DeskError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &DeskError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error (or anything it wraps) is a DeskError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DeskError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
