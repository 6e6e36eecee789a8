package services

import (
	"context"
	"fmt"

	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence"
)

const (
	defaultExecutionLimit = 50
	maxExecutionLimit     = 500
)

// Execution is the execution log service. The log is append-only; the service
// only reads.
type Execution struct {
	persistence persistence.Persistence
}

func NewExecution(persistence persistence.Persistence) *Execution {
	return &Execution{persistence: persistence}
}

// ListExecutionsResponse contains one page of the execution log, newest first.
type ListExecutionsResponse struct {
	Executions []*models.Execution `json:"executions"`
	TotalCount int                 `json:"total_count"`
}

// List returns recent execution rows, newest first.
func (e *Execution) List(ctx context.Context, filter persistence.ExecutionFilter) (*ListExecutionsResponse, error) {
	if filter.Status != "" && !validExecutionStatus(filter.Status) {
		return nil, NewValidationError("ListExecutions", "INVALID_STATUS",
			fmt.Sprintf("unknown execution status %q", filter.Status), ErrInvalidRequest)
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultExecutionLimit
	}

	if filter.Limit > maxExecutionLimit {
		filter.Limit = maxExecutionLimit
	}

	executions, err := e.persistence.ExecutionRepository().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return &ListExecutionsResponse{Executions: executions, TotalCount: len(executions)}, nil
}

func validExecutionStatus(status models.ExecutionStatus) bool {
	switch status {
	case models.ExecutionSuccess, models.ExecutionPartial, models.ExecutionFailed:
		return true
	default:
		return false
	}
}
