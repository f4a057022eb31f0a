package service

import (
	"context"
	"log/slog"
)

// PurgeSession force-deletes a session with its messages and diagnostic
// report in one transaction. Role gating happens at the transport edge.
func (s *Service) PurgeSession(ctx context.Context, sessionID string) error {
	if err := s.store.PurgeSession(ctx, sessionID); err != nil {
		return err
	}
	slog.Info("session purged", "session_id", sessionID)
	return nil
}
