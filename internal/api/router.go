package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/api/handler"
	"github.com/rolegate/portal-client/internal/api/middleware"
	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
)

// Deps are the components the shell server drives.
type Deps struct {
	Session ports.SessionService
	Access  ports.AccessService
	Roster  ports.RosterService
	Info    handler.InfoProvider
	// Checks are probed by /health/ready, keyed by dependency name.
	Checks map[string]handler.Check
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))

	// --- Probes and metrics (no session required) ---
	health := handler.NewHealthHandler(d.Checks)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/api-info", handler.NewInfoHandler(d.Info).Get)

	// --- Session ---
	sessions := handler.NewSessionHandler(d.Session, d.Access)
	e.GET("/session", sessions.Get)
	e.POST("/session/login", sessions.Login)
	e.POST("/session/logout", sessions.Logout)
	e.POST("/register", sessions.Register)

	// --- Views ---
	views := handler.NewViewHandler(d.Access)
	e.GET("/view", views.Get)
	e.POST("/view", views.Navigate)

	// --- Roster (admin only) ---
	roster := handler.NewRosterHandler(d.Roster)
	admin := e.Group("/roster", middleware.RequireRole(d.Session, domain.RoleAdmin))
	admin.GET("", roster.List)
	admin.POST("/refresh", roster.Refresh)
	admin.POST("/:id/role", roster.ChangeRole)
	admin.POST("/:id/toggle-status", roster.ToggleStatus)

	return e
}
