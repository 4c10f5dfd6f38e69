package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/newsroom/pkg/cache"
	"github.com/dukex/newsroom/pkg/gdocs"
	"github.com/dukex/newsroom/pkg/services"
	"github.com/dukex/newsroom/pkg/triggers"
	"github.com/dukex/newsroom/pkg/triggers/slack"
)

// NewTriggerRegistry returns a registry with every built-in trigger sender.
func NewTriggerRegistry(logger *slog.Logger) *triggers.Registry {
	registry := triggers.NewRegistry(logger)
	registry.Register(slack.NewSender(logger))

	return registry
}

// NewAccessCache connects the Redis access cache. An empty URL disables caching and
// returns a nil cache and a no-op close.
//
// nolint:ireturn // nil must stay an untyped nil interface for the resolver
func NewAccessCache(ctx context.Context, redisURL string, logger *slog.Logger) (services.AccessCache, func() error, error) {
	if redisURL == "" {
		return nil, func() error { return nil }, nil
	}

	accessCache, err := cache.NewAccessCache(ctx, redisURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect access cache: %w", err)
	}

	return accessCache, accessCache.Close, nil
}

// NewDocumentExporter builds the Google Docs exporter. Without a credentials file the
// export is disabled and a nil exporter is returned.
//
// nolint:ireturn // nil must stay an untyped nil interface for the document service
func NewDocumentExporter(
	ctx context.Context,
	credentialsFile, tokenFile, folderID string,
	logger *slog.Logger,
) (services.DocumentExporter, error) {
	if credentialsFile == "" {
		return nil, nil
	}

	exporter, err := gdocs.NewExporter(ctx, credentialsFile, tokenFile, folderID, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create google docs exporter: %w", err)
	}

	return exporter, nil
}
