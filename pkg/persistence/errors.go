// Package persistence provides the storage abstraction for rules and the
// execution log.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations return.
var (
	// ErrRuleNotFound indicates no rule exists for the given identifier.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrExecutionNotFound indicates no execution exists for the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")
)

// RuleError wraps rule store failures with operation context.
type RuleError struct {
	Op     string // Operation being performed (e.g., "Create", "Update", "Delete")
	RuleID string // Rule ID if applicable
	Err    error  // Underlying error
}

func (e *RuleError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for rule %s: %v", e.Op, e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func (e *RuleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRuleError creates a rule error with context.
func NewRuleError(op, ruleID string, err error) *RuleError {
	return &RuleError{Op: op, RuleID: ruleID, Err: err}
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
