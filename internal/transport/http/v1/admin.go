package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// PurgeSession force-deletes a session with its messages and report.
// Admin role required.
// DELETE /v1/admin/sessions/:session_id
func (h *Handler) PurgeSession(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	if !h.authorize(c, "session.purge") {
		return nil
	}

	if err := h.service.PurgeSession(ctx, sessionID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
