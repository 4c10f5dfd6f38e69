package main

import (
	"context"
	"fmt"

	"github.com/dukex/newsroom/pkg/cmd"
	"github.com/dukex/newsroom/pkg/log"
	"github.com/dukex/newsroom/pkg/notify"
	"github.com/dukex/newsroom/pkg/otelhelper"
	"github.com/urfave/cli/v3"
)

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start api",
		Flags: append(commonFlags(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for stage notifications (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka brokers, required when the event bus is kafka",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the access cache; empty disables caching",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "google-credentials-file",
				Usage:   "OAuth client secret file for the Google Docs export; empty disables the export",
				Sources: cli.EnvVars("GOOGLE_CREDENTIALS_FILE"),
			},
			&cli.StringFlag{
				Name:    "google-token-file",
				Usage:   "Stored OAuth token for the Google Docs export",
				Value:   "token.json",
				Sources: cli.EnvVars("GOOGLE_TOKEN_FILE"),
			},
			&cli.StringFlag{
				Name:    "google-drive-folder-id",
				Usage:   "Drive folder receiving exported documents",
				Sources: cli.EnvVars("GOOGLE_DRIVE_FOLDER_ID"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces with the OTLP HTTP exporter",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Newsroom API")

			shutdownTracing, err := otelhelper.Setup(ctx, "newsroom-api", command.Bool("otel"))
			if err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}

			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.Error("Failed to shut down tracing", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			accessCache, closeCache, err := cmd.NewAccessCache(ctx, command.String("redis-url"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := closeCache(); err != nil {
					logger.Error("Failed to close access cache", "error", err)
				}
			}()

			eventBusType := command.String("event-bus")

			eventBus, err := cmd.NewEventBus(eventBusType, command.StringSlice("kafka-brokers"), "newsroom-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			registry := cmd.NewTriggerRegistry(logger)

			// With kafka the notifier binary delivers; in process the API delivers itself.
			if eventBusType != "kafka" {
				err = notify.NewDispatcher(eventBus, registry, logger).Start(ctx)
				if err != nil {
					return err
				}
			}

			exporter, err := cmd.NewDocumentExporter(
				ctx,
				command.String("google-credentials-file"),
				command.String("google-token-file"),
				command.String("google-drive-folder-id"),
				logger,
			)
			if err != nil {
				return err
			}

			api := NewAPI(logger, persistence, Integrations{
				AccessCache:   accessCache,
				Triggers:      registry,
				Notifications: notify.NewEventBusSink(eventBus, logger),
				Exporter:      exporter,
			})

			return api.Start(ctx, command.Int("port"))
		},
	}
}
