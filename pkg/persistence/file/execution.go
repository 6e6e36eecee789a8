package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/google/uuid"
)

const defaultExecutionListLimit = 50

// ExecutionRepository stores one JSON file per execution under
// <root>/executions. File names start with a reverse-sortable timestamp so a
// name sort yields newest-first without opening every file.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) Append(_ context.Context, execution *models.Execution) error {
	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	if execution.TriggeredAt.IsZero() {
		execution.TriggeredAt = time.Now().UTC()
	}

	err := os.MkdirAll(er.root+"/executions", 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	name := fmt.Sprintf("%020d-%s.json", execution.TriggeredAt.UnixNano(), execution.ID)

	return os.WriteFile(path.Join(er.root, "executions", name), data, 0600)
}

func (er *ExecutionRepository) List(_ context.Context, filter persistence.ExecutionFilter) ([]*models.Execution, error) {
	root := os.DirFS(er.root + "/executions")

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	// Names embed the nanosecond timestamp, so descending name order is
	// newest-first.
	sort.Sort(sort.Reverse(sort.StringSlice(jsonFiles)))

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultExecutionListLimit
	}

	executions := make([]*models.Execution, 0, limit)

	for _, file := range jsonFiles {
		if len(executions) >= limit {
			break
		}

		body, err := os.ReadFile(filepath.Clean(path.Join(er.root, "executions", file)))
		if err != nil {
			return nil, fmt.Errorf("failed to read execution file %s: %w", file, err)
		}

		var execution models.Execution

		err = json.Unmarshal(body, &execution)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution file %s: %w", file, err)
		}

		if filter.RuleID != "" && execution.RuleID != filter.RuleID {
			continue
		}

		if filter.Status != "" && execution.Status != filter.Status {
			continue
		}

		executions = append(executions, &execution)
	}

	return executions, nil
}
