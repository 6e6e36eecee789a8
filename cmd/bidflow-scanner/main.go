// Package main provides the deadline scanner binary: a cron-driven source of
// deadline_approaching trigger events.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bidflow/bidflow/pkg/cmd"
	"github.com/bidflow/bidflow/pkg/log"
	"github.com/bidflow/bidflow/pkg/sources/deadline"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("scanner")

	command := &cli.Command{
		Name:                  "bidflow-scanner",
		Usage:                 "Scan for approaching deadlines and emit trigger events",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
				Name:    "crm-base-url",
				Usage:   "Base URL of the platform API serving deadline queries",
				Sources: cli.EnvVars("CRM_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "crm-token",
				Usage:   "Bearer token for the platform API",
				Sources: cli.EnvVars("CRM_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "scan-cron",
				Usage:   "Cron expression for deadline scans",
				Value:   "*/5 * * * *",
				Sources: cli.EnvVars("SCAN_CRON"),
			},
			&cli.DurationFlag{
				Name:    "deadline-window",
				Usage:   "How far ahead a deadline counts as approaching",
				Value:   deadline.DefaultWindow,
				Sources: cli.EnvVars("DEADLINE_WINDOW"),
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

			logger.InfoContext(ctx, "Initializing Bidflow deadline scanner")

			platform := cmd.NewPlatformClient(command.String("crm-base-url"), command.String("crm-token"), logger)

			eventBus := cmd.NewEventBus(
				command.String("event-bus"),
				command.String("kafka-brokers"),
				"bidflow-scanner",
				logger,
			)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			scanner, err := deadline.NewScanner(
				platform,
				eventBus,
				command.String("scan-cron"),
				command.Duration("deadline-window"),
				logger,
			)
			if err != nil {
				return err
			}

			err = scanner.Start(ctx)
			if err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			<-sigChan
			logger.InfoContext(ctx, "Shutting down deadline scanner")

			return scanner.Stop(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
