// Package crm defines the engine's view of the opportunity platform and its
// delivery collaborators. The engine never owns business entities: it reads
// snapshots, asks the platform to apply changes, and hands notifications and
// teaming-fit requests to their services.
package crm

import (
	"context"
	"errors"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
)

// ErrEntityNotFound indicates the platform has no entity for the given ref.
var ErrEntityNotFound = errors.New("entity not found")

// SnapshotProvider supplies the field values condition evaluation reads.
type SnapshotProvider interface {
	// GetSnapshot returns the current field map for one entity.
	GetSnapshot(ctx context.Context, entityType, entityID string) (map[string]any, error)

	// SampleSnapshots returns up to limit representative snapshots of an
	// entity type, used by rule dry-runs.
	SampleSnapshots(ctx context.Context, entityType string, limit int) ([]map[string]any, error)
}

// EntityWriter applies entity mutations through the platform.
type EntityWriter interface {
	MoveStage(ctx context.Context, entity models.EntityRef, targetStage string) error
	AssignUser(ctx context.Context, entity models.EntityRef, userID, role string) error
	AddTag(ctx context.Context, entity models.EntityRef, tag string) error
}

// Notification is one message handed to the delivery transport.
type Notification struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Notifier hands notifications to the delivery transport.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

// TeamingEvaluator requests a teaming-fit evaluation for an entity. The
// returned job id identifies the asynchronous evaluation on the platform.
type TeamingEvaluator interface {
	RequestEvaluation(ctx context.Context, entity models.EntityRef, model string, notifyOwner bool) (string, error)
}

// Deadline is one upcoming entity deadline reported by the platform.
type Deadline struct {
	Entity models.EntityRef `json:"entity"`
	DueAt  time.Time        `json:"due_at"`
}

// DeadlineSource lists entities whose deadline falls inside the given window.
// The platform query deduplicates per window; the scanner stays stateless.
type DeadlineSource interface {
	UpcomingDeadlines(ctx context.Context, window time.Duration) ([]Deadline, error)
}

// Client bundles every collaborator surface the engine consumes.
type Client interface {
	SnapshotProvider
	EntityWriter
	Notifier
	TeamingEvaluator
	DeadlineSource
}
