// Package api provides the HTTP API surface for Monument (§6).
package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/monument-sim/monument/pkg/namespace"
	"github.com/monument-sim/monument/pkg/services"
	"github.com/monument-sim/monument/pkg/version"
)

// Server is the HTTP API server, echo/v5-based.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	registry   *namespace.Registry

	actionService       *services.ActionService
	contextService      *services.ContextService
	adjudicationService *services.AdjudicationService
	replayService       *services.ReplayService
	adminService        *services.AdminService
}

// NewServer constructs the API server and registers all routes.
func NewServer(
	registry *namespace.Registry,
	actionService *services.ActionService,
	contextService *services.ContextService,
	adjudicationService *services.AdjudicationService,
	replayService *services.ReplayService,
	adminService *services.AdminService,
) *Server {
	e := echo.New()

	s := &Server{
		echo:                e,
		registry:            registry,
		actionService:       actionService,
		contextService:      contextService,
		adjudicationService: adjudicationService,
		replayService:       replayService,
		adminService:        adminService,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(1 * 1024 * 1024))

	s.echo.GET("/", s.healthHandler)

	sim := s.echo.Group("/sim/:ns")
	sim.POST("", s.createNamespaceHandler)
	sim.POST("/reset", s.resetNamespaceHandler)
	sim.GET("/status", s.statusHandler)
	sim.POST("/actors", s.registerActorHandler)
	sim.GET("/agent/:id/context", s.contextHandler)
	sim.POST("/agent/:id/action", s.actionHandler)
	sim.POST("/adjudicator/scoring", s.scoringHandler)
	sim.GET("/replay/audit", s.replayAuditHandler)
	sim.GET("/replay/rebuild", s.replayRebuildHandler)
	sim.GET("/ws/live", s.wsHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// used by tests serving on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:         "healthy",
		Version:        version.Full(),
		OpenNamespaces: s.registry.List(),
	})
}
