// Package main provides the Newsroom API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/dukex/newsroom/pkg/services"
	"github.com/dukex/newsroom/pkg/triggers"
	"github.com/dukex/newsroom/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// Integrations are the optional collaborators of the API. Nil fields disable the feature.
type Integrations struct {
	AccessCache   services.AccessCache
	Triggers      *triggers.Registry
	Notifications services.NotificationSink
	Exporter      services.DocumentExporter
}

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	integrations Integrations
	validate     *validator.Validate
}

func NewAPI(logger *slog.Logger, persistence persistence.Persistence, integrations Integrations) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		integrations: integrations,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	var triggerValidator services.TriggerValidator
	if a.integrations.Triggers != nil {
		triggerValidator = a.integrations.Triggers
	}

	permissions := services.NewPermissionResolver(a.logger, a.integrations.AccessCache)
	allocator := services.NewSequenceAllocator(a.logger)

	workflowService := services.NewWorkflow(a.persistence, permissions, a.logger)
	stageService := services.NewStage(a.persistence, permissions, allocator, triggerValidator, a.logger)
	documentService := services.NewDocument(a.persistence, permissions, a.integrations.Notifications, a.integrations.Exporter, a.logger)
	grantService := services.NewGrants(a.persistence, permissions, a.logger)
	directory := services.NewDirectory(a.persistence, permissions, a.logger)

	handlers := web.NewAPIHandlers(workflowService, stageService, documentService, grantService, directory, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := workflowService.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Newsroom API")
	})

	app.Use(web.Authenticate(directory, a.logger))
	web.RegisterRoutes(app, handlers)

	return app
}

// Start serves the API until ctx is done.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		err := app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
