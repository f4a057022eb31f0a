// Package store provides durable persistence for the consultation service.
package store

import (
	"context"
	"time"

	"github.com/ymzhao891/medichat/internal/domain"
)

// Store is the persistence gateway. Implementations return the domain
// sentinel errors (domain.ErrNotFound and friends) for domain-meaningful
// failures and wrap driver errors in domain.ErrDependency.
type Store interface {
	// Directory
	CreatePatient(ctx context.Context, p *domain.Patient) error
	GetPatient(ctx context.Context, patientID string) (*domain.Patient, error)
	CreateClinician(ctx context.Context, c *domain.Clinician) error
	GetClinician(ctx context.Context, clinicianID string) (*domain.Clinician, error)
	ListClinicians(ctx context.Context, onlyAvailable bool) ([]domain.Clinician, error)
	SetClinicianAvailability(ctx context.Context, clinicianID string, available bool) error

	// Sessions and messages
	CreateSession(ctx context.Context, sess *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	GetSessionDetail(ctx context.Context, sessionID string) (*domain.SessionDetail, error)
	// AppendMessage inserts the message and increments the owning session's
	// message_count as one atomic unit, assigning msg.Seq inside the
	// transaction. Fails with domain.ErrSessionClosed when the session has
	// ended and domain.ErrNotFound when it does not exist.
	AppendMessage(ctx context.Context, msg *domain.Message) error
	GetMessages(ctx context.Context, sessionID string, afterSeq, limit int) ([]domain.Message, error)
	// CloseSession transitions open -> closed exactly once and returns the
	// closed session. A second call fails with domain.ErrSessionClosed.
	CloseSession(ctx context.Context, sessionID string, endedAt time.Time) (*domain.Session, error)
	// PurgeSession cascades over messages and the diagnostic report.
	PurgeSession(ctx context.Context, sessionID string) error

	// Diagnostic reports
	CreateReport(ctx context.Context, r *domain.DiagnosticReport) error
	GetReport(ctx context.Context, sessionID string) (*domain.DiagnosticReport, error)
	// ValidateReport flips is_validated false -> true exactly once.
	ValidateReport(ctx context.Context, sessionID, clinicianID, notes string, at time.Time) (*domain.DiagnosticReport, error)

	// Notifications
	CreateNotification(ctx context.Context, n *domain.Notification) error
	GetNotification(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnreadNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	// MarkNotificationRead sets read_at once; re-marking is a no-op.
	MarkNotificationRead(ctx context.Context, notificationID string, at time.Time) error

	Close() error
}
