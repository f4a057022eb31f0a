package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ymzhao891/medichat/internal/domain"
)

// StartSession opens a consultation between a patient and a clinician.
// POST /v1/sessions
func (h *Handler) StartSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	detail, err := h.service.StartSession(ctx, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, detail)
}

// SendMessage appends a message to an open session over the synchronous
// path. The broadcast to the session room happens inside the service.
// POST /v1/sessions/:session_id/messages
func (h *Handler) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.SessionID = c.Param("session_id")

	msg, err := h.service.RecordMessage(ctx, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, msg)
}

// GetMessages returns the ordered transcript, optionally only entries after
// a known seq.
// GET /v1/sessions/:session_id/messages?after_seq=&limit=
func (h *Handler) GetMessages(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	afterSeq, _ := strconv.Atoi(c.QueryParam("after_seq"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 100
	}

	messages, err := h.service.GetMessages(ctx, sessionID, afterSeq, limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// EndSession closes the session and returns the full transcript.
// POST /v1/sessions/:session_id/end
func (h *Handler) EndSession(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	transcript, err := h.service.EndSession(ctx, sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, transcript)
}
