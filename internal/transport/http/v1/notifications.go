package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ymzhao891/medichat/internal/domain"
)

// SendNotification persists a notification and pushes it to the target
// user's private channel.
// POST /v1/notifications
func (h *Handler) SendNotification(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.SendNotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	n, err := h.service.SendNotification(ctx, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, n)
}

// ListNotifications returns the caller's unread notifications, newest first.
// GET /v1/notifications
func (h *Handler) ListNotifications(c echo.Context) error {
	ctx := c.Request().Context()

	notifications, err := h.service.ListNotifications(ctx, principalFrom(c).ID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
	})
}

// MarkNotificationRead marks a notification read. Re-marking is a no-op.
// PUT /v1/notifications/:notification_id/read
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	ctx := c.Request().Context()
	notificationID := c.Param("notification_id")

	if err := h.service.MarkNotificationRead(ctx, notificationID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
