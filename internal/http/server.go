package http

import (
	"github.com/labstack/echo/v4"
)

// NewRouter wires up all routes and middleware.
func NewRouter(h *Handler, rateLimiter *IPRateLimiter, allowOrigin string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Outermost first.
	e.Use(Recovery())
	e.Use(RequestID())
	e.Use(CORS(allowOrigin))
	e.Use(Logging())
	e.Use(rateLimiter.Middleware())

	e.GET("/healthz", h.Healthz)
	e.POST("/api/ask", h.Ask)
	e.POST("/api/feedback", h.AddFeedback)
	e.GET("/api/feedback", h.ListFeedback)

	return e
}
