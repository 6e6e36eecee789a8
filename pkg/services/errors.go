// Package services provides the rule and execution services between the HTTP
// surface and the stores.
package services

import (
	"errors"
	"fmt"
)

// Validation errors (400 Bad Request). Malformed rules are rejected at save
// time, never silently dropped: a condition or action the dispatcher would
// have to skip is a configuration bug the operator should see immediately.
var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrRuleNameRequired       = errors.New("rule name is required")
	ErrInvalidTriggerType     = errors.New("invalid trigger type")
	ErrConditionFieldRequired = errors.New("condition field is required")
	ErrInvalidOperator        = errors.New("invalid condition operator")
	ErrInvalidConditionValue  = errors.New("invalid condition value")
	ErrUnknownActionType      = errors.New("unknown action type")
	ErrInvalidActionParams    = errors.New("invalid action params")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrRuleNameRequired) ||
		errors.Is(err, ErrInvalidTriggerType) ||
		errors.Is(err, ErrConditionFieldRequired) ||
		errors.Is(err, ErrInvalidOperator) ||
		errors.Is(err, ErrInvalidConditionValue) ||
		errors.Is(err, ErrUnknownActionType) ||
		errors.Is(err, ErrInvalidActionParams)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
