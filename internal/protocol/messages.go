// Package protocol defines the websocket message protocol between clients
// and the consultation service.
package protocol

import (
	"github.com/ymzhao891/medichat/internal/domain"
)

// Message types from client to server
const (
	TypeJoinRoom    = "join_room"
	TypeLeaveRoom   = "leave_room"
	TypeSendMessage = "send_message"
	TypeEndChat     = "end_chat"
)

// Message types from server to client
const (
	TypeJoined         = "joined"
	TypeLeft           = "left"
	TypeReceiveMessage = "receive_message"
	TypeChatEnded      = "chat_ended"
	TypeNotification   = "notification"
	TypeError          = "error"
)

// BaseMessage contains common fields for all frames.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// JoinRoomMessage subscribes the connection to a session's room.
type JoinRoomMessage struct {
	BaseMessage
}

// LeaveRoomMessage unsubscribes the connection from a session's room.
type LeaveRoomMessage struct {
	BaseMessage
}

// SendMessageMessage carries a chat message over the push channel. The
// reply is the broadcast receive_message event, not a direct response.
type SendMessageMessage struct {
	BaseMessage
	SenderID   string            `json:"sender_id"`
	SenderRole domain.SenderRole `json:"sender_role"`
	Content    string            `json:"content"`
}

// EndChatMessage closes the session and tears the room down.
type EndChatMessage struct {
	BaseMessage
}

// AckMessage acknowledges a join or leave locally.
type AckMessage struct {
	BaseMessage
}

// ReceiveMessageEvent is broadcast to a session room for each accepted
// message.
type ReceiveMessageEvent struct {
	BaseMessage
	Message *domain.Message `json:"message"`
}

// ChatEndedEvent is the final event delivered before room teardown.
type ChatEndedEvent struct {
	BaseMessage
	EndedAt int64 `json:"ended_at"`
}

// NotificationEvent is pushed on a user's private channel.
type NotificationEvent struct {
	BaseMessage
	Notification *domain.Notification `json:"notification"`
}

// ErrorMessage is sent when a client frame is rejected.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeSessionClosed  = "session_closed"
	ErrorCodeValidation     = "validation_failed"
	ErrorCodeInternalError  = "internal_error"
)
