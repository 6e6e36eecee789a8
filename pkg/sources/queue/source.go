// Package queue consumes trigger events from a redis list, for platform
// installations that push automation events through redis instead of Kafka.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bidflow/bidflow/pkg/events"
	redis "github.com/redis/go-redis/v9"
)

const popTimeout = 1 * time.Second

// Handler receives each decoded trigger event.
type Handler func(ctx context.Context, event events.EntityEvent) error

// Source is a BLPop consumer loop over one redis list.
type Source struct {
	list    string
	client  redis.UniversalClient
	handler Handler
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewSource(redisURL, list string, logger *slog.Logger) (*Source, error) {
	if list == "" {
		return nil, errors.New("queue source list name is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return &Source{
		list:   list,
		client: redis.NewClient(opts),
		stopCh: make(chan struct{}),
		logger: logger.With("module", "queue_source", "list", list),
	}, nil
}

func (s *Source) Start(ctx context.Context, handler Handler) error {
	s.handler = handler

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.client.Ping(pingCtx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	s.logger.InfoContext(ctx, "Starting queue source")

	s.wg.Add(1)

	go s.consume(ctx)

	return nil
}

func (s *Source) consume(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			s.logger.InfoContext(ctx, "Queue source stopped")

			return
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Context cancelled, stopping queue source")

			return
		default:
			err := s.processMessage(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "Error processing queue message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (s *Source) processMessage(ctx context.Context) error {
	result, err := s.client.BLPop(ctx, popTimeout, s.list).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop message from list: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var event events.EntityEvent

	err = json.Unmarshal([]byte(result[1]), &event)
	if err != nil {
		// Malformed payloads are logged and skipped, never retried: a bad
		// producer must not wedge the list.
		s.logger.ErrorContext(ctx, "Skipping malformed queue message", "error", err)

		return nil
	}

	if !event.TriggerType.Valid() {
		s.logger.ErrorContext(ctx, "Skipping queue message with unknown trigger type",
			"trigger_type", event.TriggerType)

		return nil
	}

	err = s.handler(ctx, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to handle queue event",
			"event_id", event.ID,
			"error", err)
	}

	return nil
}

func (s *Source) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping queue source")

	close(s.stopCh)
	s.wg.Wait()

	err := s.client.Close()
	if err != nil {
		s.logger.ErrorContext(ctx, "Error closing redis client", "error", err)
	}

	return nil
}
