// Package main provides the notifier: it consumes stage notifications from Kafka and
// delivers them through the trigger senders.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/newsroom/pkg/cmd"
	"github.com/dukex/newsroom/pkg/eventbus"
	"github.com/dukex/newsroom/pkg/log"
	"github.com/dukex/newsroom/pkg/notify"
	"github.com/dukex/newsroom/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := &cli.Command{
		Name:                  "newsroom-notifier",
		Usage:                 "Deliver stage notifications published by the API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "kafka-brokers",
				Usage:    "Kafka brokers the API publishes notifications to",
				Required: true,
				Sources:  cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces with the OTLP HTTP exporter",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("notifier")

			shutdownTracing, err := otelhelper.Setup(ctx, "newsroom-notifier", command.Bool("otel"))
			if err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}

			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.Error("Failed to shut down tracing", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus("kafka", command.StringSlice("kafka-brokers"), "newsroom-notifier", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			return Run(ctx, eventBus, cmd.NewTriggerRegistry(logger), logger)
		},
	}

	err := command.Run(ctx, os.Args)
	if err != nil {
		stop()
		panic(err)
	}
}

// Run delivers notifications from subscriber until ctx is done.
func Run(ctx context.Context, subscriber eventbus.EventSubscriber, deliverer notify.Deliverer, logger *slog.Logger) error {
	err := notify.NewDispatcher(subscriber, deliverer, logger).Start(ctx)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Notifier running")

	<-ctx.Done()

	logger.Info("Notifier stopping")

	return nil
}
