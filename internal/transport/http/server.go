// Package http provides the HTTP server for the consultation service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ymzhao891/medichat/internal/identity"
	"github.com/ymzhao891/medichat/internal/policy"
	"github.com/ymzhao891/medichat/internal/service"
	v1 "github.com/ymzhao891/medichat/internal/transport/http/v1"
	"github.com/ymzhao891/medichat/internal/ws"
)

// NewServer creates and configures the public HTTP server. It serves the
// REST API under /v1 and the websocket upgrade endpoint at /ws.
func NewServer(svc *service.Service, eng *policy.Engine, verifier identity.Verifier, wsServer *ws.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, eng, verifier)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	e.GET("/ws", wsServer.HandleWebSocket)

	return e
}
