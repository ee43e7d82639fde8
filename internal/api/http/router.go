package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/hotel-ops/internal/api/http/handlers"
	"github.com/spec-kit/hotel-ops/internal/auth"
	"github.com/spec-kit/hotel-ops/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Tickets        *handlers.TicketsHandler
	Cleaning       *handlers.CleaningHandler
	Consumption    *handlers.ConsumptionHandler
	Dispatch       *handlers.DispatchHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)

	staffOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireStaff()}
	supervisor := auth.RequireSupervisor()

	authGroup.Post("/staff/logout", append(staffOnly, cfg.Staff.Logout)...)

	tickets := app.Group("/tickets", staffOnly...)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/pending-approval", supervisor, cfg.Tickets.PendingApproval)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/start", cfg.Tickets.StartTicket)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reassign", supervisor, cfg.Tickets.ReassignTicket)
	tickets.Post("/:id/approve", supervisor, cfg.Tickets.ApproveTicket)

	cleaning := app.Group("/cleaning", staffOnly...)
	cleaning.Get("/pending-approval", supervisor, cfg.Cleaning.PendingApproval)
	cleaning.Post("/:id/start", cfg.Cleaning.Start)
	cleaning.Post("/:id/complete", cfg.Cleaning.Complete)
	cleaning.Post("/:id/approve", supervisor, cfg.Cleaning.Approve)
	cleaning.Post("/:id/reassign", supervisor, cfg.Cleaning.Reassign)

	consumption := app.Group("/consumption", staffOnly...)
	consumption.Post("", cfg.Consumption.Record)
	consumption.Get("/rooms/:roomId/stay", cfg.Consumption.RoomStay)
	consumption.Get("/hotels/:hotelId/stay", cfg.Consumption.HotelStay)
	consumption.Post("/hotels/:hotelId/clear-previous-day", supervisor, cfg.Consumption.ClearPreviousDay)

	app.Post("/dispatch/run", append(staffOnly, cfg.Dispatch.Run)...)
}
