// Package events defines the event types exchanged on the bus between the
// platform, the dispatcher and downstream consumers.
package events

import (
	"time"

	"github.com/bidflow/bidflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every engine event; consumers pick by the event_type
// metadata key.
const Topic = "bidflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// EntityEventType is an upstream trigger event: an entity was created,
	// changed stage, crossed a score threshold or approached a deadline.
	EntityEventType EventType = "automation.entity.event"

	// ExecutionRecordedEventType announces one appended execution row, for
	// alerting and external retry tooling.
	ExecutionRecordedEventType EventType = "automation.execution.recorded"
)

// EntityEvent is the dispatch entry point: one trigger occurrence for one
// entity. Metadata carries producer-specific context (previous stage, the
// crossed threshold) and is not read by the engine itself.
type EntityEvent struct {
	ID          string             `json:"id"`
	TriggerType models.TriggerType `json:"trigger_type"`
	EntityType  string             `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

func (e EntityEvent) GetType() EventType {
	return EntityEventType
}

// Entity returns the event's entity reference.
func (e EntityEvent) Entity() models.EntityRef {
	return models.EntityRef{Type: e.EntityType, ID: e.EntityID}
}

// NewEntityEvent builds a trigger event with a fresh id and timestamp.
func NewEntityEvent(triggerType models.TriggerType, entityType, entityID string) EntityEvent {
	return EntityEvent{
		ID:          uuid.New().String(),
		TriggerType: triggerType,
		EntityType:  entityType,
		EntityID:    entityID,
		OccurredAt:  time.Now().UTC(),
		Metadata:    make(map[string]any),
	}
}

// ExecutionRecorded is published after the dispatcher appends one execution
// row, so operators can alert on failed or partial firings without polling
// the log.
type ExecutionRecorded struct {
	ID          string                 `json:"id"`
	ExecutionID string                 `json:"execution_id"`
	RuleID      string                 `json:"rule_id"`
	EntityType  string                 `json:"entity_type"`
	EntityID    string                 `json:"entity_id"`
	Status      models.ExecutionStatus `json:"status"`
	Error       string                 `json:"error,omitempty"`
	RecordedAt  time.Time              `json:"recorded_at"`
}

func (e ExecutionRecorded) GetType() EventType {
	return ExecutionRecordedEventType
}

// NewExecutionRecorded builds the announcement for one execution row.
func NewExecutionRecorded(execution *models.Execution) ExecutionRecorded {
	return ExecutionRecorded{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		RuleID:      execution.RuleID,
		EntityType:  execution.Entity.Type,
		EntityID:    execution.Entity.ID,
		Status:      execution.Status,
		Error:       execution.Error,
		RecordedAt:  time.Now().UTC(),
	}
}
