package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"venue-booking/internal/handler"    // handlers implementing the endpoints
	"venue-booking/internal/middleware" // JWT authentication and role enforcement
)

// Deps bundles everything route registration needs.  The cache
// middleware may be nil when Redis is unavailable; routes then run
// uncached.
type Deps struct {
	Calendar  *handler.CalendarHandler
	Bookings  *handler.BookingHandler
	Webhooks  *handler.WebhookHandler
	Auth      *handler.AuthHandler
	Admin     *handler.AdminHandler
	JWTSecret string
	Cache     echo.MiddlewareFunc
}

// Register wires all routes onto the Echo instance.
func Register(e *echo.Echo, d Deps) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Public calendar queries.  The availability GET goes through the
	// response cache when one is configured.
	if d.Cache != nil {
		e.GET("/v1/calendar/unavailable", d.Calendar.GetUnavailable, d.Cache)
	} else {
		e.GET("/v1/calendar/unavailable", d.Calendar.GetUnavailable)
	}
	e.POST("/v1/calendar/check-range", d.Calendar.CheckRange)

	// Customer booking flow.  No authentication: a hold is created
	// with contact identity, and subsequent operations carry the
	// booking ID the customer was handed.
	e.POST("/v1/bookings/hold", d.Bookings.CreateHold)
	e.POST("/v1/bookings/:id/checkout", d.Bookings.InitiateDeposit)
	e.POST("/v1/bookings/:id/cancel", d.Bookings.Cancel)

	// Payment provider webhook.  Authenticated by HMAC signature, not
	// JWT.
	e.POST("/v1/webhooks/payment", d.Webhooks.Receive)

	// Admin login.
	e.POST("/v1/auth/login", d.Auth.Login)

	// Back-office endpoints require a valid ADMIN token.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(d.JWTSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.GET("/blackouts", d.Admin.ListBlackouts)
	admin.POST("/blackouts", d.Admin.AddBlackout)
	admin.DELETE("/blackouts/:day", d.Admin.RemoveBlackout)
	admin.GET("/policy", d.Admin.GetPolicy)
	admin.PUT("/policy", d.Admin.UpdatePolicy)
	admin.GET("/bookings/:id", d.Admin.GetBooking)
	admin.POST("/bookings/:id/refund", d.Admin.Refund)
}
