package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/eventbus"
	"github.com/bidflow/bidflow/pkg/events"
	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/otelhelper"
	"github.com/bidflow/bidflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultDispatchConcurrency bounds concurrent dispatches so a burst of
// trigger events cannot overwhelm downstream action handlers.
const DefaultDispatchConcurrency = 8

// Publisher is the slice of the event bus the dispatcher needs. Nil disables
// publishing of recorded executions.
type Publisher = eventbus.EventPublisher

// Dispatcher is the entry point for trigger events. For each event it fetches
// one entity snapshot, matches rules and runs each matched rule through the
// executor, appending one execution row per rule. Handler failures never
// propagate to the event producer; only infrastructure failures (snapshot
// store, execution log) surface as errors so the bus can redeliver.
type Dispatcher struct {
	snapshots  crm.SnapshotProvider
	matcher    *Matcher
	executor   *Executor
	executions persistence.ExecutionRepository
	publisher  Publisher
	tracer     trace.Tracer
	logger     *slog.Logger
	semaphore  chan struct{}
	locks      *entityLocks
}

func NewDispatcher(
	snapshots crm.SnapshotProvider,
	matcher *Matcher,
	executor *Executor,
	executions persistence.ExecutionRepository,
	publisher Publisher,
	tracer trace.Tracer,
	concurrency int,
	logger *slog.Logger,
) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultDispatchConcurrency
	}

	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("bidflow-dispatcher")
	}

	return &Dispatcher{
		snapshots:  snapshots,
		matcher:    matcher,
		executor:   executor,
		executions: executions,
		publisher:  publisher,
		tracer:     tracer,
		logger:     logger.With("module", "dispatcher"),
		semaphore:  make(chan struct{}, concurrency),
		locks:      newEntityLocks(),
	}
}

// Dispatch processes one trigger event end to end. It blocks while the
// concurrency limit is reached or another dispatch holds the same entity.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.EntityEvent) error {
	select {
	case d.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-d.semaphore }()

	entity := event.Entity()

	d.locks.lock(entity.String())
	defer d.locks.unlock(entity.String())

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "dispatch",
		attribute.String(otelhelper.EventIDKey, event.ID),
		attribute.String(otelhelper.TriggerTypeKey, string(event.TriggerType)),
		attribute.String(otelhelper.EntityTypeKey, entity.Type),
		attribute.String(otelhelper.EntityIDKey, entity.ID),
	)
	defer span.End()

	snapshot, err := d.snapshots.GetSnapshot(ctx, entity.Type, entity.ID)
	if err != nil {
		// No snapshot means nothing to evaluate. The event is dropped, not
		// retried: automation must never block the business operation that
		// raised the trigger.
		otelhelper.SetError(span, err)
		d.logger.ErrorContext(ctx, "Failed to fetch entity snapshot, dropping event",
			"event_id", event.ID,
			"entity", entity.String(),
			"error", err)

		return nil
	}

	matched, err := d.matcher.Match(ctx, event.TriggerType, snapshot)
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to match rules for event %s: %w", event.ID, err)
	}

	d.logger.InfoContext(ctx, "Dispatching trigger event",
		"event_id", event.ID,
		"trigger_type", event.TriggerType,
		"entity", entity.String(),
		"matched_rules", len(matched))

	for _, rule := range matched {
		err := d.fireRule(ctx, rule, event, entity, snapshot)
		if err != nil {
			otelhelper.SetError(span, err)

			return err
		}
	}

	return nil
}

func (d *Dispatcher) fireRule(
	ctx context.Context,
	rule *models.Rule,
	event events.EntityEvent,
	entity models.EntityRef,
	snapshot map[string]any,
) error {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "fire_rule",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.RuleNameKey, rule.Name),
	)
	defer span.End()

	executionCtx := models.ExecutionContext{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		TriggerType: event.TriggerType,
		Entity:      entity,
		Snapshot:    snapshot,
	}

	execution := d.executor.Run(ctx, rule, executionCtx)
	span.SetAttributes(attribute.String(otelhelper.StatusKey, string(execution.Status)))

	err := d.executions.Append(ctx, execution)
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to append execution for rule %s: %w", rule.ID, err)
	}

	d.publishRecorded(ctx, execution)

	return nil
}

// publishRecorded announces the appended row. Best effort: a bus outage must
// not fail a dispatch whose execution is already durably logged.
func (d *Dispatcher) publishRecorded(ctx context.Context, execution *models.Execution) {
	if d.publisher == nil {
		return
	}

	recorded := events.NewExecutionRecorded(execution)

	err := d.publisher.Publish(ctx, execution.Entity.String(), recorded)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish execution recorded event",
			"execution_id", execution.ID,
			"error", err)
	}
}
