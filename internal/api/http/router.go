package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hse-tools/permit-service/internal/api/http/handlers"
	"github.com/hse-tools/permit-service/internal/auth"
	"github.com/hse-tools/permit-service/internal/workflow"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Items          *handlers.ItemsHandler
	MOC            *handlers.MOCHandler
	Requests       *handlers.RequestsHandler
	Contractors    *handlers.ContractorsHandler
	AuthMiddleware *auth.AuthMiddleware
	// MetricsGatherer enables the prometheus endpoint at MetricsPath when set.
	MetricsGatherer prometheus.Gatherer
	MetricsPath     string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.MetricsGatherer != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{})))
	}

	authn := cfg.AuthMiddleware.Handle
	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", authn, cfg.Auth.Me)

	items := api.Group("/items", authn)
	items.Get("/", cfg.Items.List)
	items.Post("/", auth.Guard(workflow.OpCreatePTW), cfg.Items.Create)
	items.Get("/:id", cfg.Items.Get)
	items.Put("/:id/approve", cfg.Items.Approve)
	items.Put("/:id/reject", cfg.Items.Reject)
	items.Put("/:id", cfg.Items.Update)
	items.Delete("/:id", auth.Guard(workflow.OpDeleteItem), cfg.Items.Delete)

	// static paths are registered ahead of /:id
	moc := api.Group("/moc", authn)
	moc.Post("/", cfg.MOC.Create)
	moc.Get("/", cfg.MOC.List)
	moc.Get("/contractor", cfg.MOC.ListOwn)
	moc.Get("/job-started", cfg.MOC.JobStarted)
	moc.Get("/jobStarted", cfg.MOC.AllJobStarted)
	moc.Get("/moc/:mocId", cfg.MOC.PTWByMoc)
	moc.Get("/:id", cfg.MOC.Get)
	moc.Put("/:id/submit", cfg.MOC.Submit)
	moc.Put("/:id/approve", cfg.MOC.Approve)
	moc.Put("/:id/reject", cfg.MOC.Reject)
	moc.Put("/:id/accept", cfg.MOC.Accept)

	requests := api.Group("/requests", authn)
	requests.Get("/", cfg.Requests.List)
	requests.Post("/", auth.Guard(workflow.OpCreateRequest), cfg.Requests.Create)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Put("/:id", cfg.Requests.UpdateStatus)

	contractors := api.Group("/contractors", authn, auth.Guard(workflow.OpListContractors))
	contractors.Get("/", cfg.Contractors.List)
	contractors.Post("/sendRequests", cfg.Contractors.SendRequest)
	contractors.Get("/:id", cfg.Contractors.Get)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("route", map[string]any{"path": c.Path()})
	})
}
