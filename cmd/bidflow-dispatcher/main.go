package main

import (
	"context"
	"os"
	"time"

	"github.com/bidflow/bidflow/pkg/cmd"
	"github.com/bidflow/bidflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("dispatcher")

	command := &cli.Command{
		Name:                  "bidflow-dispatcher",
		Usage:                 "Consume trigger events and fire matching automation rules",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the queue event source (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "queue-list",
				Usage:   "Redis list the queue event source consumes",
				Value:   "bidflow:events",
				Sources: cli.EnvVars("QUEUE_LIST"),
			},
			&cli.StringFlag{
				Name:    "crm-base-url",
				Usage:   "Base URL of the platform API serving entity snapshots",
				Sources: cli.EnvVars("CRM_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "crm-token",
				Usage:   "Bearer token for the platform API",
				Sources: cli.EnvVars("CRM_TOKEN"),
			},
			&cli.IntFlag{
				Name:    "dispatch-concurrency",
				Usage:   "Maximum concurrent trigger event dispatches",
				Value:   8,
				Sources: cli.EnvVars("DISPATCH_CONCURRENCY"),
			},
			&cli.DurationFlag{
				Name:    "action-timeout",
				Usage:   "Per-action handler timeout",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("ACTION_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "rules-cache-ttl",
				Usage:   "How long matched rule sets may be served from cache",
				Value:   5 * time.Second,
				Sources: cli.EnvVars("RULES_CACHE_TTL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Bidflow dispatcher")

			platform := cmd.NewPlatformClient(command.String("crm-base-url"), command.String("crm-token"), logger)
			registry := cmd.NewRegistry(logger, platform)
			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(
				command.String("event-bus"),
				command.String("kafka-brokers"),
				"bidflow-dispatcher",
				logger,
			)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			worker := NewWorker(
				logger,
				persistence,
				registry,
				platform,
				eventBus,
				WorkerConfig{
					Concurrency:   command.Int("dispatch-concurrency"),
					ActionTimeout: command.Duration("action-timeout"),
					CacheTTL:      command.Duration("rules-cache-ttl"),
					RedisURL:      command.String("redis-url"),
					QueueList:     command.String("queue-list"),
				},
			)

			return worker.Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
