package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-support/internal/api/http/handlers"
	"github.com/spec-kit/crm-support/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Admins         *handlers.AdminsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/admin/login", cfg.Auth.AdminLogin)
	authGroup.Post("/customer/login", cfg.Auth.CustomerLogin)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	customer := api.Group("/customer", auth.RequireCustomer())
	customer.Post("/tickets", cfg.Tickets.CreateTicket)
	customer.Get("/tickets", cfg.Tickets.ListTickets)
	customer.Get("/tickets/:id", cfg.Tickets.GetTicket)
	customer.Get("/tickets/:id/messages", cfg.Tickets.ListMessages)
	customer.Post("/tickets/:id/messages", cfg.Tickets.AddMessage)

	admin := api.Group("/admin", auth.RequireAdminRole())
	admin.Get("/tickets", cfg.AdminTickets.ListTickets)
	// registered before :id so "stats" is not taken for a ticket id
	admin.Get("/tickets/stats", cfg.AdminTickets.Stats)
	admin.Get("/tickets/:id", cfg.AdminTickets.GetTicket)
	admin.Patch("/tickets/:id", cfg.AdminTickets.UpdateTicket)
	admin.Post("/tickets/:id/claim", cfg.AdminTickets.ClaimTicket)
	admin.Post("/tickets/:id/release", cfg.AdminTickets.ReleaseTicket)
	admin.Post("/tickets/:id/escalate", cfg.AdminTickets.EscalateTicket)
	admin.Get("/tickets/:id/messages", cfg.AdminTickets.ListMessages)
	admin.Post("/tickets/:id/messages", cfg.AdminTickets.AddMessage)
	admin.Get("/admins", cfg.Admins.ListAdmins)
	admin.Get("/admins/:id", cfg.Admins.GetAdmin)
}
