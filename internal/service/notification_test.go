package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymzhao891/medichat/internal/domain"
	"github.com/ymzhao891/medichat/internal/protocol"
)

func TestSendNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conn := env.connect(t, "u1")

	n, err := env.svc.SendNotification(ctx, &domain.SendNotificationRequest{
		UserID:  "u1",
		Type:    domain.NotificationTypePostLiked,
		Title:   "Someone liked your post",
		Body:    "alice liked your post",
		Payload: json.RawMessage(`{"post_id":"42"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.NotificationID)

	var event protocol.NotificationEvent
	require.NoError(t, json.Unmarshal(recvFrame(t, conn), &event))
	assert.Equal(t, protocol.TypeNotification, event.Type)
	assert.Equal(t, n.NotificationID, event.Notification.NotificationID)
	assert.JSONEq(t, `{"post_id":"42"}`, string(event.Notification.Payload))
}

func TestSendNotificationOffline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// No live connection; the push is dropped but the row persists.
	n, err := env.svc.SendNotification(ctx, &domain.SendNotificationRequest{
		UserID: "u2",
		Type:   domain.NotificationTypeNewFollower,
		Title:  "New follower",
	})
	require.NoError(t, err)

	list, err := env.svc.ListNotifications(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.NotificationID, list[0].NotificationID)

	require.NoError(t, env.svc.MarkNotificationRead(ctx, n.NotificationID))

	list, err = env.svc.ListNotifications(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSendNotificationValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.SendNotification(ctx, &domain.SendNotificationRequest{
		Type: domain.NotificationTypeComment, Title: "hi",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.svc.SendNotification(ctx, &domain.SendNotificationRequest{
		UserID: "u1", Type: "carrier_pigeon", Title: "hi",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.svc.SendNotification(ctx, &domain.SendNotificationRequest{
		UserID: "u1", Type: domain.NotificationTypeComment,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
