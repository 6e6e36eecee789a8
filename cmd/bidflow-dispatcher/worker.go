// Package main provides the Bidflow dispatcher worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/engine"
	"github.com/bidflow/bidflow/pkg/eventbus"
	"github.com/bidflow/bidflow/pkg/events"
	"github.com/bidflow/bidflow/pkg/otelhelper"
	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/bidflow/bidflow/pkg/registry"
	"github.com/bidflow/bidflow/pkg/sources/queue"
)

// WorkerConfig carries the dispatch tuning knobs from the CLI flags.
type WorkerConfig struct {
	Concurrency   int
	ActionTimeout time.Duration
	CacheTTL      time.Duration
	RedisURL      string
	QueueList     string
}

// Worker wires the dispatcher to its event inputs: the event bus, plus an
// optional redis queue source.
type Worker struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	platform    crm.Client
	eventBus    eventbus.EventBus
	config      WorkerConfig
}

func NewWorker(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	platform crm.Client,
	eventBus eventbus.EventBus,
	config WorkerConfig,
) *Worker {
	return &Worker{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		platform:    platform,
		eventBus:    eventBus,
		config:      config,
	}
}

// Start runs the worker until SIGINT or SIGTERM.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracer, err := otelhelper.NewTracer(ctx, "bidflow-dispatcher")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	matcher := engine.NewMatcher(w.persistence.RuleRepository(), w.config.CacheTTL, w.logger)
	executor := engine.NewExecutor(w.registry, w.config.ActionTimeout, w.logger)
	dispatcher := engine.NewDispatcher(
		w.platform,
		matcher,
		executor,
		w.persistence.ExecutionRepository(),
		w.eventBus,
		tracer,
		w.config.Concurrency,
		w.logger,
	)

	err = w.eventBus.Handle(events.EntityEventType, func(ctx context.Context, event any) error {
		entityEvent, ok := event.(*events.EntityEvent)
		if !ok {
			w.logger.ErrorContext(ctx, "Invalid payload for entity event")

			return nil
		}

		return dispatcher.Dispatch(ctx, *entityEvent)
	})
	if err != nil {
		return fmt.Errorf("failed to register entity event handler: %w", err)
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	var queueSource *queue.Source

	if w.config.RedisURL != "" {
		queueSource, err = queue.NewSource(w.config.RedisURL, w.config.QueueList, w.logger)
		if err != nil {
			return fmt.Errorf("failed to create queue source: %w", err)
		}

		err = queueSource.Start(ctx, func(ctx context.Context, event events.EntityEvent) error {
			return dispatcher.Dispatch(ctx, event)
		})
		if err != nil {
			return fmt.Errorf("failed to start queue source: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Dispatcher started",
		"concurrency", w.config.Concurrency,
		"action_timeout", w.config.ActionTimeout.String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down dispatcher")
	cancel()

	if queueSource != nil {
		err := queueSource.Stop(context.Background())
		if err != nil {
			w.logger.Error("Failed to stop queue source", "error", err)
		}
	}

	return nil
}
