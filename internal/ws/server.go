// Package ws provides the push channel for consultation clients.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ymzhao891/medichat/internal/config"
	"github.com/ymzhao891/medichat/internal/domain"
	"github.com/ymzhao891/medichat/internal/hub"
	"github.com/ymzhao891/medichat/internal/identity"
	"github.com/ymzhao891/medichat/internal/protocol"
	"github.com/ymzhao891/medichat/internal/service"
)

const handleTimeout = 10 * time.Second

// Server handles websocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	service  *service.Service
	verifier identity.Verifier
	upgrader websocket.Upgrader
}

// NewServer creates a new websocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service, verifier identity.Verifier) *Server {
	return &Server{
		cfg:      cfg,
		hub:      h,
		service:  svc,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket authenticates the caller, upgrades the connection and
// starts the read/write pumps. The connection is bound to the principal's
// private channel at upgrade time; session rooms must be joined explicitly
// on every connect.
func (s *Server) HandleWebSocket(c echo.Context) error {
	principal, err := s.verifier.Verify(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := s.hub.NewConnection(ws, principal.ID)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads frames from the connection. A disconnect unregisters the
// connection, which leaves every joined room; an in-flight RecordMessage
// still completes and simply no longer delivers here.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("websocket error", "error", err)
			}
			break
		}

		// Frames are handled in arrival order so a client's messages reach
		// RecordMessage, and therefore the room, in the order it sent them.
		s.handleMessage(conn, message)
	}
}

// writePump writes queued frames and keeps the connection alive.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Warn("failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches an incoming frame.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid JSON frame")
		return
	}

	switch base.Type {
	case protocol.TypeJoinRoom:
		s.handleJoinRoom(conn, data)
	case protocol.TypeLeaveRoom:
		s.handleLeaveRoom(conn, data)
	case protocol.TypeSendMessage:
		s.handleSendMessage(conn, data)
	case protocol.TypeEndChat:
		s.handleEndChat(conn, data)
	default:
		s.sendError(conn, base.SessionID, protocol.ErrorCodeInvalidMessage, "unknown frame type: "+base.Type)
	}
}

// handleJoinRoom subscribes the connection to a session room. Joining a
// closed or unknown session is rejected, so a join after teardown fails.
func (s *Server) handleJoinRoom(conn *hub.Connection, data []byte) {
	var msg protocol.JoinRoomMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.SessionID == "" {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid join_room frame")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	sess, err := s.service.GetSession(ctx, msg.SessionID)
	if err != nil {
		s.sendServiceError(conn, msg.SessionID, err)
		return
	}
	if sess.State != domain.SessionStateOpen {
		s.sendError(conn, msg.SessionID, protocol.ErrorCodeSessionClosed, "session has ended")
		return
	}

	s.hub.Join(hub.SessionRoom(msg.SessionID), conn)
	s.ack(conn, protocol.TypeJoined, msg.SessionID)
}

func (s *Server) handleLeaveRoom(conn *hub.Connection, data []byte) {
	var msg protocol.LeaveRoomMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.SessionID == "" {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid leave_room frame")
		return
	}

	s.hub.Leave(hub.SessionRoom(msg.SessionID), conn)
	s.ack(conn, protocol.TypeLeft, msg.SessionID)
}

// handleSendMessage feeds the shared ingestion path. The reply is the
// broadcast receive_message event, not a direct response.
func (s *Server) handleSendMessage(conn *hub.Connection, data []byte) {
	var msg protocol.SendMessageMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid send_message frame")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	_, err := s.service.RecordMessage(ctx, &domain.SendMessageRequest{
		SessionID:  msg.SessionID,
		SenderID:   msg.SenderID,
		SenderRole: msg.SenderRole,
		Content:    msg.Content,
	})
	if err != nil {
		s.sendServiceError(conn, msg.SessionID, err)
	}
}

func (s *Server) handleEndChat(conn *hub.Connection, data []byte) {
	var msg protocol.EndChatMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.SessionID == "" {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid end_chat frame")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if _, err := s.service.EndSession(ctx, msg.SessionID); err != nil {
		s.sendServiceError(conn, msg.SessionID, err)
	}
	// The chat_ended broadcast reaches this connection through the room.
}

func (s *Server) ack(conn *hub.Connection, frameType, sessionID string) {
	s.hub.SendJSONToConnection(conn, protocol.AckMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      frameType,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
	})
}

func (s *Server) sendServiceError(conn *hub.Connection, sessionID string, err error) {
	code := protocol.ErrorCodeInternalError
	switch {
	case errors.Is(err, domain.ErrValidation):
		code = protocol.ErrorCodeValidation
	case errors.Is(err, domain.ErrNotFound):
		code = protocol.ErrorCodeNotFound
	case errors.Is(err, domain.ErrSessionClosed):
		code = protocol.ErrorCodeSessionClosed
	}
	s.sendError(conn, sessionID, code, err.Error())
}

func (s *Server) sendError(conn *hub.Connection, sessionID, code, message string) {
	s.hub.SendJSONToConnection(conn, protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeError,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
		Code:    code,
		Message: message,
	})
}
