package crm

import (
	"context"
	"sync"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
)

// Memory is an in-process Client used in tests and single-process development.
// It records every write so tests can assert on side effects.
type Memory struct {
	mu sync.Mutex

	snapshots map[string]map[string]any

	StageMoves    []StageMove
	Assignments   []Assignment
	Tags          []TagAdd
	Notifications []Notification
	Evaluations   []EvaluationRequest
	Deadlines     []Deadline
}

type StageMove struct {
	Entity      models.EntityRef
	TargetStage string
}

type Assignment struct {
	Entity models.EntityRef
	UserID string
	Role   string
}

type TagAdd struct {
	Entity models.EntityRef
	Tag    string
}

type EvaluationRequest struct {
	Entity      models.EntityRef
	Model       string
	NotifyOwner bool
}

func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]map[string]any)}
}

// PutSnapshot seeds the snapshot served for one entity.
func (m *Memory) PutSnapshot(entity models.EntityRef, snapshot map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[entity.String()] = snapshot
}

func (m *Memory) GetSnapshot(_ context.Context, entityType, entityID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, ok := m.snapshots[models.EntityRef{Type: entityType, ID: entityID}.String()]
	if !ok {
		return nil, ErrEntityNotFound
	}

	return snapshot, nil
}

func (m *Memory) SampleSnapshots(_ context.Context, entityType string, limit int) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := entityType + "/"
	samples := make([]map[string]any, 0, limit)

	for key, snapshot := range m.snapshots {
		if len(samples) >= limit && limit > 0 {
			break
		}

		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			samples = append(samples, snapshot)
		}
	}

	return samples, nil
}

func (m *Memory) MoveStage(_ context.Context, entity models.EntityRef, targetStage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StageMoves = append(m.StageMoves, StageMove{Entity: entity, TargetStage: targetStage})

	if snapshot, ok := m.snapshots[entity.String()]; ok {
		snapshot["stage"] = targetStage
	}

	return nil
}

func (m *Memory) AssignUser(_ context.Context, entity models.EntityRef, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Assignments = append(m.Assignments, Assignment{Entity: entity, UserID: userID, Role: role})

	return nil
}

func (m *Memory) AddTag(_ context.Context, entity models.EntityRef, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Tags = append(m.Tags, TagAdd{Entity: entity, Tag: tag})

	return nil
}

func (m *Memory) Send(_ context.Context, notification Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Notifications = append(m.Notifications, notification)

	return nil
}

func (m *Memory) RequestEvaluation(_ context.Context, entity models.EntityRef, model string, notifyOwner bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Evaluations = append(m.Evaluations, EvaluationRequest{Entity: entity, Model: model, NotifyOwner: notifyOwner})

	return "eval-" + entity.ID, nil
}

func (m *Memory) UpcomingDeadlines(_ context.Context, _ time.Duration) ([]Deadline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Deadlines, nil
}
