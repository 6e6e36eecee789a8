// Package main provides the Bidflow API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/engine"
	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/bidflow/bidflow/pkg/registry"
	"github.com/bidflow/bidflow/pkg/services"
	"github.com/bidflow/bidflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	platform    crm.Client
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	platform crm.Client,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		platform:    platform,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	matcher := engine.NewMatcher(a.persistence.RuleRepository(), engine.DefaultCacheTTL, a.logger)
	ruleService := services.NewRule(a.persistence, a.registry, matcher, a.platform)
	executionService := services.NewExecution(a.persistence)

	handlers := web.NewAPIHandlers(ruleService, executionService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Bidflow API")
	})

	r := app.Group("/rules")
	r.Get("/", handlers.GetRules)
	r.Post("/", handlers.CreateRule)
	r.Get("/:id", handlers.GetRule)
	r.Patch("/:id", handlers.UpdateRule)
	r.Delete("/:id", handlers.DeleteRule)
	r.Post("/:id/test", handlers.TestRule)

	app.Get("/executions", handlers.GetExecutions)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
