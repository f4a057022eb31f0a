package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ymzhao891/medichat/internal/domain"
	"github.com/ymzhao891/medichat/internal/hub"
	"github.com/ymzhao891/medichat/internal/protocol"
)

// StartSession creates an open session between a patient and a clinician
// and returns it with both participants' display fields. The clinician is
// notified on their private channel.
func (s *Service) StartSession(ctx context.Context, req *domain.StartSessionRequest) (*domain.SessionDetail, error) {
	if req.PatientID == "" || req.ClinicianID == "" {
		return nil, fmt.Errorf("%w: patient_id and clinician_id are required", domain.ErrValidation)
	}

	patient, err := s.store.GetPatient(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown patient %s", domain.ErrValidation, req.PatientID)
		}
		return nil, err
	}
	if _, err := s.store.GetClinician(ctx, req.ClinicianID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown clinician %s", domain.ErrValidation, req.ClinicianID)
		}
		return nil, err
	}

	sess := &domain.Session{
		SessionID:   uuid.New().String(),
		PatientID:   req.PatientID,
		ClinicianID: req.ClinicianID,
		State:       domain.SessionStateOpen,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	detail, err := s.store.GetSessionDetail(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}

	// Side effect only; the session is already committed.
	if _, err := s.SendNotification(ctx, &domain.SendNotificationRequest{
		UserID:  req.ClinicianID,
		Type:    domain.NotificationTypeChatRequest,
		Title:   "New consultation request",
		Body:    fmt.Sprintf("%s started a consultation with you", patient.Username),
		Payload: []byte(fmt.Sprintf(`{"session_id":%q}`, sess.SessionID)),
	}); err != nil {
		slog.Warn("failed to notify clinician of new session",
			"session_id", sess.SessionID, "error", err)
	}

	return detail, nil
}

// GetSession returns the session row.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// GetMessages returns the ordered transcript, optionally only entries
// after a known seq (reconnect catch-up).
func (s *Service) GetMessages(ctx context.Context, sessionID string, afterSeq, limit int) ([]domain.Message, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.GetMessages(ctx, sessionID, afterSeq, limit)
}

// RecordMessage is the single ingestion path shared by the synchronous
// HTTP call and the websocket push event: validate, persist the message
// and the counter increment atomically, then broadcast to the session
// room. The broadcast happens strictly after commit.
func (s *Service) RecordMessage(ctx context.Context, req *domain.SendMessageRequest) (*domain.Message, error) {
	if req.SessionID == "" || req.SenderID == "" {
		return nil, fmt.Errorf("%w: session_id and sender_id are required", domain.ErrValidation)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content must not be empty", domain.ErrValidation)
	}
	if !req.SenderRole.Valid() {
		return nil, fmt.Errorf("%w: invalid sender_role %q", domain.ErrValidation, req.SenderRole)
	}

	detail, err := s.store.GetSessionDetail(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	// Resolve the sender's display fields once, at write time.
	var sender domain.ParticipantInfo
	switch req.SenderRole {
	case domain.SenderRolePatient:
		sender = detail.Patient
	case domain.SenderRoleClinician:
		sender = detail.Clinician
	}
	if sender.ID != req.SenderID {
		return nil, fmt.Errorf("%w: sender %s is not the session's %s",
			domain.ErrValidation, req.SenderID, req.SenderRole)
	}

	msg := &domain.Message{
		MessageID:    uuid.New().String(),
		SessionID:    req.SessionID,
		SenderID:     req.SenderID,
		SenderRole:   req.SenderRole,
		SenderName:   sender.Name,
		SenderAvatar: sender.Avatar,
		Content:      req.Content,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	event := protocol.ReceiveMessageEvent{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeReceiveMessage,
			Ts:        msg.CreatedAt.UnixMilli(),
			SessionID: msg.SessionID,
		},
		Message: msg,
	}
	if err := s.hub.PublishJSON(hub.SessionRoom(msg.SessionID), event); err != nil {
		// Fan-out failures never fail the accepted write.
		slog.Warn("failed to broadcast message", "session_id", msg.SessionID, "error", err)
	}

	return msg, nil
}

// EndSession transitions the session to closed, returns the full ordered
// transcript, and tears the room down after a final chat_ended event.
// Ending an already-closed session is a caller error.
func (s *Service) EndSession(ctx context.Context, sessionID string) (*domain.SessionTranscript, error) {
	endedAt := time.Now().UTC()
	sess, err := s.store.CloseSession(ctx, sessionID, endedAt)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.GetMessages(ctx, sessionID, 0, 0)
	if err != nil {
		return nil, err
	}

	final, err := json.Marshal(protocol.ChatEndedEvent{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeChatEnded,
			Ts:        endedAt.UnixMilli(),
			SessionID: sessionID,
		},
		EndedAt: endedAt.UnixMilli(),
	})
	if err != nil {
		slog.Warn("failed to encode chat_ended event", "session_id", sessionID, "error", err)
	} else {
		s.hub.TeardownRoom(hub.SessionRoom(sessionID), final)
	}

	return &domain.SessionTranscript{Session: *sess, Messages: messages}, nil
}
