package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ymzhao891/medichat/internal/domain"
)

// GenerateReport produces the session's diagnostic report from its
// transcript. A session has at most one report; a second call conflicts.
// POST /v1/sessions/:session_id/report
func (h *Handler) GenerateReport(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	report, err := h.service.GenerateReport(ctx, sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, report)
}

// GetReport returns the session's diagnostic report.
// GET /v1/sessions/:session_id/report
func (h *Handler) GetReport(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	report, err := h.service.GetReport(ctx, sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, report)
}

// ValidateReport records the clinician sign-off. Clinician role required.
// PUT /v1/sessions/:session_id/report/validate
func (h *Handler) ValidateReport(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	if !h.authorize(c, "report.validate") {
		return nil
	}

	var req domain.ValidateReportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ClinicianID == "" {
		req.ClinicianID = principalFrom(c).ID
	}

	report, err := h.service.ValidateReport(ctx, sessionID, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, report)
}
