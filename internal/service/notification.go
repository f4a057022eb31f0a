package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ymzhao891/medichat/internal/domain"
	"github.com/ymzhao891/medichat/internal/hub"
	"github.com/ymzhao891/medichat/internal/protocol"
)

// SendNotification persists the notification and pushes it on the target
// user's private channel. A user with no live connections simply misses
// the push; the persisted row is the durable record.
func (s *Service) SendNotification(ctx context.Context, req *domain.SendNotificationRequest) (*domain.Notification, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: invalid notification type %q", domain.ErrValidation, req.Type)
	}
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	n := &domain.Notification{
		NotificationID: uuid.New().String(),
		UserID:         req.UserID,
		Type:           req.Type,
		Title:          req.Title,
		Body:           req.Body,
		Payload:        req.Payload,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	event := protocol.NotificationEvent{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.TypeNotification,
			Ts:   n.CreatedAt.UnixMilli(),
		},
		Notification: n,
	}
	if err := s.hub.PublishJSON(hub.UserRoom(n.UserID), event); err != nil {
		slog.Warn("failed to push notification", "user_id", n.UserID, "error", err)
	}

	return n, nil
}

// ListNotifications returns the user's unread notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	return s.store.ListUnreadNotifications(ctx, userID)
}

// MarkNotificationRead sets read_at once; re-marking is a no-op.
func (s *Service) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return s.store.MarkNotificationRead(ctx, notificationID, time.Now().UTC())
}
