// Package v1 provides the public HTTP API for the consultation service.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ymzhao891/medichat/internal/identity"
	"github.com/ymzhao891/medichat/internal/policy"
	"github.com/ymzhao891/medichat/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	policy   *policy.Engine
	verifier identity.Verifier
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, eng *policy.Engine, verifier identity.Verifier) *Handler {
	return &Handler{
		service:  svc,
		policy:   eng,
		verifier: verifier,
	}
}

// RegisterRoutes registers routes with the echo server. Everything under
// /v1 requires a bearer token; /health does not.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/v1", h.Authenticate)

	// Session API
	g.POST("/sessions", h.StartSession)
	g.POST("/sessions/:session_id/messages", h.SendMessage)
	g.GET("/sessions/:session_id/messages", h.GetMessages)
	g.POST("/sessions/:session_id/end", h.EndSession)

	// Diagnostic report API
	g.POST("/sessions/:session_id/report", h.GenerateReport)
	g.GET("/sessions/:session_id/report", h.GetReport)
	g.PUT("/sessions/:session_id/report/validate", h.ValidateReport)

	// Notification API
	g.POST("/notifications", h.SendNotification)
	g.GET("/notifications", h.ListNotifications)
	g.PUT("/notifications/:notification_id/read", h.MarkNotificationRead)

	// Directory API
	g.POST("/patients", h.RegisterPatient)
	g.POST("/clinicians", h.RegisterClinician)
	g.GET("/clinicians", h.ListClinicians)
	g.PUT("/clinicians/:clinician_id/availability", h.SetClinicianAvailability)

	// Admin API
	g.DELETE("/admin/sessions/:session_id", h.PurgeSession)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
