// Package deadline emits deadline_approaching trigger events on a schedule.
// The scanner is stateless: the platform query deduplicates per window.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/eventbus"
	"github.com/bidflow/bidflow/pkg/events"
	"github.com/bidflow/bidflow/pkg/models"
	"github.com/robfig/cron/v3"
)

// DefaultWindow is how far ahead the scan looks for due entities.
const DefaultWindow = 72 * time.Hour

// Scanner runs a cron-scheduled scan for entities whose deadline falls inside
// the window and publishes one deadline_approaching event per entity.
type Scanner struct {
	source    crm.DeadlineSource
	publisher eventbus.EventPublisher
	cronExpr  string
	window    time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
}

func NewScanner(
	source crm.DeadlineSource,
	publisher eventbus.EventPublisher,
	cronExpr string,
	window time.Duration,
	logger *slog.Logger,
) (*Scanner, error) {
	if cronExpr == "" {
		return nil, errors.New("deadline scanner cron expression is required")
	}

	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	if window <= 0 {
		window = DefaultWindow
	}

	return &Scanner{
		source:    source,
		publisher: publisher,
		cronExpr:  cronExpr,
		window:    window,
		logger:    logger.With("module", "deadline_scanner", "cron", cronExpr),
	}, nil
}

func (s *Scanner) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting deadline scanner", "window", s.window.String())

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.cronExpr, func() {
		s.Scan(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule deadline scan: %w", err)
	}

	s.cron.Start()

	return nil
}

// Scan runs one pass: query upcoming deadlines and publish a trigger event
// per entity. Publish failures are logged per entity so one bad publish does
// not drop the rest of the batch.
func (s *Scanner) Scan(ctx context.Context) {
	deadlines, err := s.source.UpcomingDeadlines(ctx, s.window)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query upcoming deadlines", "error", err)

		return
	}

	s.logger.InfoContext(ctx, "Deadline scan complete", "upcoming", len(deadlines))

	for _, deadline := range deadlines {
		event := events.NewEntityEvent(
			models.TriggerDeadlineApproaching,
			deadline.Entity.Type,
			deadline.Entity.ID,
		)
		event.Metadata["due_at"] = deadline.DueAt.UTC().Format(time.RFC3339)

		err := s.publisher.Publish(ctx, deadline.Entity.String(), event)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish deadline event",
				"entity", deadline.Entity.String(),
				"error", err)
		}
	}
}

func (s *Scanner) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping deadline scanner")

	if s.cron != nil {
		s.cron.Stop()
	}

	return nil
}
