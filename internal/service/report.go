package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ymzhao891/medichat/internal/domain"
)

// GenerateReport reads the session's transcript, produces an analysis via
// the external analyzer and persists exactly one report per session. The
// analyzer call is bounded by a timeout and runs outside any transaction;
// on failure nothing is persisted and the caller may retry.
func (s *Service) GenerateReport(ctx context.Context, sessionID string) (*domain.DiagnosticReport, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	messages, err := s.store.GetMessages(ctx, sessionID, 0, 0)
	if err != nil {
		return nil, err
	}
	transcript := make([]domain.TranscriptEntry, 0, len(messages))
	for _, m := range messages {
		transcript = append(transcript, domain.TranscriptEntry{Role: m.SenderRole, Content: m.Content})
	}

	analysisCtx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
	defer cancel()
	analysis, err := s.analyzer.Analyze(analysisCtx, transcript)
	if err != nil {
		return nil, fmt.Errorf("%w: analyzer: %v", domain.ErrDependency, err)
	}

	report := &domain.DiagnosticReport{
		ReportID:  uuid.New().String(),
		SessionID: sessionID,
		Analysis:  analysis,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err == nil {
		if _, err := s.SendNotification(ctx, &domain.SendNotificationRequest{
			UserID:  sess.PatientID,
			Type:    domain.NotificationTypeDiagnosticReady,
			Title:   "Diagnostic report ready",
			Body:    "The diagnostic report for your consultation is ready for review",
			Payload: []byte(fmt.Sprintf(`{"session_id":%q}`, sessionID)),
		}); err != nil {
			slog.Warn("failed to notify patient of report", "session_id", sessionID, "error", err)
		}
	}

	return report, nil
}

// ValidateReport records the clinician's sign-off. The transition is
// one-way; a second call fails and its notes are discarded.
func (s *Service) ValidateReport(ctx context.Context, sessionID string, req *domain.ValidateReportRequest) (*domain.DiagnosticReport, error) {
	if req.ClinicianID == "" {
		return nil, fmt.Errorf("%w: clinician_id is required", domain.ErrValidation)
	}
	return s.store.ValidateReport(ctx, sessionID, req.ClinicianID, req.DoctorNotes, time.Now().UTC())
}

// GetReport returns the session's diagnostic report.
func (s *Service) GetReport(ctx context.Context, sessionID string) (*domain.DiagnosticReport, error) {
	return s.store.GetReport(ctx, sessionID)
}
