package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ymzhao891/medichat/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// Concurrent writers on the same session serialize on the row; wait
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS patients (
			patient_id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS clinicians (
			clinician_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			speciality TEXT NOT NULL DEFAULT '',
			is_available INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			clinician_id TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT 'open',
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			message_count INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (patient_id) REFERENCES patients(patient_id),
			FOREIGN KEY (clinician_id) REFERENCES clinicians(clinician_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			sender_id TEXT NOT NULL,
			sender_role TEXT NOT NULL,
			sender_name TEXT NOT NULL,
			sender_avatar TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id),
			UNIQUE (session_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
		`CREATE TABLE IF NOT EXISTS diagnostic_reports (
			report_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			analysis TEXT NOT NULL,
			doctor_notes TEXT NOT NULL DEFAULT '',
			is_validated INTEGER NOT NULL DEFAULT 0,
			validated_by TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			validated_at DATETIME,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			notification_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			payload TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			read_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func depErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrDependency, op, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreatePatient registers a patient.
func (s *SQLiteStore) CreatePatient(ctx context.Context, p *domain.Patient) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (patient_id, username, avatar, created_at) VALUES (?, ?, ?, ?)`,
		p.PatientID, p.Username, p.Avatar, p.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: patient %s", domain.ErrConflict, p.PatientID)
	}
	if err != nil {
		return depErr("insert patient", err)
	}
	return nil
}

// GetPatient retrieves a patient by ID.
func (s *SQLiteStore) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	var p domain.Patient
	err := s.db.QueryRowContext(ctx,
		`SELECT patient_id, username, avatar, created_at FROM patients WHERE patient_id = ?`,
		patientID).Scan(&p.PatientID, &p.Username, &p.Avatar, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: patient %s", domain.ErrNotFound, patientID)
	}
	if err != nil {
		return nil, depErr("get patient", err)
	}
	return &p, nil
}

// CreateClinician registers a clinician.
func (s *SQLiteStore) CreateClinician(ctx context.Context, c *domain.Clinician) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clinicians (clinician_id, name, avatar, speciality, is_available, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ClinicianID, c.Name, c.Avatar, c.Speciality, c.IsAvailable, c.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: clinician %s", domain.ErrConflict, c.ClinicianID)
	}
	if err != nil {
		return depErr("insert clinician", err)
	}
	return nil
}

// GetClinician retrieves a clinician by ID.
func (s *SQLiteStore) GetClinician(ctx context.Context, clinicianID string) (*domain.Clinician, error) {
	var c domain.Clinician
	err := s.db.QueryRowContext(ctx,
		`SELECT clinician_id, name, avatar, speciality, is_available, created_at FROM clinicians WHERE clinician_id = ?`,
		clinicianID).Scan(&c.ClinicianID, &c.Name, &c.Avatar, &c.Speciality, &c.IsAvailable, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: clinician %s", domain.ErrNotFound, clinicianID)
	}
	if err != nil {
		return nil, depErr("get clinician", err)
	}
	return &c, nil
}

// ListClinicians lists clinicians, optionally only available ones.
func (s *SQLiteStore) ListClinicians(ctx context.Context, onlyAvailable bool) ([]domain.Clinician, error) {
	query := `SELECT clinician_id, name, avatar, speciality, is_available, created_at FROM clinicians`
	if onlyAvailable {
		query += ` WHERE is_available = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, depErr("list clinicians", err)
	}
	defer rows.Close()

	var out []domain.Clinician
	for rows.Next() {
		var c domain.Clinician
		if err := rows.Scan(&c.ClinicianID, &c.Name, &c.Avatar, &c.Speciality, &c.IsAvailable, &c.CreatedAt); err != nil {
			return nil, depErr("scan clinician", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, depErr("list clinicians", err)
	}
	return out, nil
}

// SetClinicianAvailability updates the availability flag.
func (s *SQLiteStore) SetClinicianAvailability(ctx context.Context, clinicianID string, available bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clinicians SET is_available = ? WHERE clinician_id = ?`, available, clinicianID)
	if err != nil {
		return depErr("update clinician availability", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: clinician %s", domain.ErrNotFound, clinicianID)
	}
	return nil
}

// CreateSession creates a session row in the open state.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, patient_id, clinician_id, state, started_at, message_count) VALUES (?, ?, ?, ?, ?, 0)`,
		sess.SessionID, sess.PatientID, sess.ClinicianID, sess.State, sess.StartedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: session %s", domain.ErrConflict, sess.SessionID)
	}
	if err != nil {
		return depErr("insert session", err)
	}
	return nil
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var sess domain.Session
	var endedAt sql.NullTime
	err := row.Scan(&sess.SessionID, &sess.PatientID, &sess.ClinicianID, &sess.State,
		&sess.StartedAt, &endedAt, &sess.MessageCount)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return &sess, nil
}

const sessionColumns = `session_id, patient_id, clinician_id, state, started_at, ended_at, message_count`

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, depErr("get session", err)
	}
	return sess, nil
}

// GetSessionDetail retrieves a session joined with both participants'
// display fields in one read.
func (s *SQLiteStore) GetSessionDetail(ctx context.Context, sessionID string) (*domain.SessionDetail, error) {
	var d domain.SessionDetail
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT s.session_id, s.patient_id, s.clinician_id, s.state, s.started_at, s.ended_at, s.message_count,
		        p.username, p.avatar, c.name, c.avatar
		 FROM sessions s
		 JOIN patients p ON p.patient_id = s.patient_id
		 JOIN clinicians c ON c.clinician_id = s.clinician_id
		 WHERE s.session_id = ?`, sessionID).Scan(
		&d.SessionID, &d.PatientID, &d.ClinicianID, &d.State, &d.StartedAt, &endedAt, &d.MessageCount,
		&d.Patient.Name, &d.Patient.Avatar, &d.Clinician.Name, &d.Clinician.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, depErr("get session detail", err)
	}
	if endedAt.Valid {
		d.EndedAt = &endedAt.Time
	}
	d.Patient.ID = d.PatientID
	d.Clinician.ID = d.ClinicianID
	return &d, nil
}

// AppendMessage inserts a message and bumps the session counter in one
// transaction. The UPDATE runs first so the transaction takes the write
// lock immediately; concurrent appends on the same session serialize here.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return depErr("begin append message", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET message_count = message_count + 1 WHERE session_id = ? AND state = ?`,
		msg.SessionID, domain.SessionStateOpen)
	if err != nil {
		return depErr("increment message count", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var state string
		err := tx.QueryRowContext(ctx,
			`SELECT state FROM sessions WHERE session_id = ?`, msg.SessionID).Scan(&state)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: session %s", domain.ErrNotFound, msg.SessionID)
		}
		if err != nil {
			return depErr("check session state", err)
		}
		return fmt.Errorf("%w: session %s", domain.ErrSessionClosed, msg.SessionID)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT message_count FROM sessions WHERE session_id = ?`, msg.SessionID).Scan(&msg.Seq); err != nil {
		return depErr("read message seq", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, seq, sender_id, sender_role, sender_name, sender_avatar, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.SessionID, msg.Seq, msg.SenderID, msg.SenderRole,
		msg.SenderName, msg.SenderAvatar, msg.Content, msg.CreatedAt); err != nil {
		return depErr("insert message", err)
	}

	if err := tx.Commit(); err != nil {
		return depErr("commit append message", err)
	}
	return nil
}

// GetMessages retrieves a session's messages in seq order, optionally only
// those after a given seq (reconnect catch-up).
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string, afterSeq, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, session_id, seq, sender_id, sender_role, sender_name, sender_avatar, content, created_at
	          FROM messages WHERE session_id = ?`
	args := []interface{}{sessionID}
	if afterSeq > 0 {
		query += ` AND seq > ?`
		args = append(args, afterSeq)
	}
	query += ` ORDER BY seq ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, depErr("list messages", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.MessageID, &m.SessionID, &m.Seq, &m.SenderID, &m.SenderRole,
			&m.SenderName, &m.SenderAvatar, &m.Content, &m.CreatedAt); err != nil {
			return nil, depErr("scan message", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, depErr("list messages", err)
	}
	return out, nil
}

// CloseSession transitions open -> closed. The guard in the WHERE clause
// makes the transition fire exactly once.
func (s *SQLiteStore) CloseSession(ctx context.Context, sessionID string, endedAt time.Time) (*domain.Session, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, ended_at = ? WHERE session_id = ? AND state = ?`,
		domain.SessionStateClosed, endedAt, sessionID, domain.SessionStateOpen)
	if err != nil {
		return nil, depErr("close session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetSession(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: session %s", domain.ErrSessionClosed, sessionID)
	}
	return s.GetSession(ctx, sessionID)
}

// PurgeSession deletes a session and everything referencing it.
func (s *SQLiteStore) PurgeSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return depErr("begin purge", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return depErr("purge messages", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM diagnostic_reports WHERE session_id = ?`, sessionID); err != nil {
		return depErr("purge report", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return depErr("purge session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	return tx.Commit()
}

// CreateReport inserts the diagnostic report. The unique constraint on
// session_id turns duplicate generation into domain.ErrConflict.
func (s *SQLiteStore) CreateReport(ctx context.Context, r *domain.DiagnosticReport) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO diagnostic_reports (report_id, session_id, analysis, doctor_notes, is_validated, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		r.ReportID, r.SessionID, r.Analysis, r.DoctorNotes, r.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: report for session %s", domain.ErrConflict, r.SessionID)
	}
	if err != nil {
		return depErr("insert report", err)
	}
	return nil
}

func (s *SQLiteStore) scanReport(ctx context.Context, sessionID string) (*domain.DiagnosticReport, error) {
	var r domain.DiagnosticReport
	var validatedBy sql.NullString
	var validatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT report_id, session_id, analysis, doctor_notes, is_validated, validated_by, created_at, validated_at
		 FROM diagnostic_reports WHERE session_id = ?`, sessionID).Scan(
		&r.ReportID, &r.SessionID, &r.Analysis, &r.DoctorNotes, &r.IsValidated,
		&validatedBy, &r.CreatedAt, &validatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: report for session %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, depErr("get report", err)
	}
	if validatedBy.Valid {
		r.ValidatedBy = validatedBy.String
	}
	if validatedAt.Valid {
		r.ValidatedAt = &validatedAt.Time
	}
	return &r, nil
}

// GetReport retrieves the report for a session.
func (s *SQLiteStore) GetReport(ctx context.Context, sessionID string) (*domain.DiagnosticReport, error) {
	return s.scanReport(ctx, sessionID)
}

// ValidateReport records the clinician sign-off. The is_validated guard
// makes the transition one-way; notes from a second call never land.
func (s *SQLiteStore) ValidateReport(ctx context.Context, sessionID, clinicianID, notes string, at time.Time) (*domain.DiagnosticReport, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE diagnostic_reports SET doctor_notes = ?, is_validated = 1, validated_by = ?, validated_at = ?
		 WHERE session_id = ? AND is_validated = 0`,
		notes, clinicianID, at, sessionID)
	if err != nil {
		return nil, depErr("validate report", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.scanReport(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: session %s", domain.ErrAlreadyValidated, sessionID)
	}
	return s.scanReport(ctx, sessionID)
}

// CreateNotification persists a notification.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	payload := sql.NullString{}
	if n.Payload != nil {
		payload = sql.NullString{String: string(n.Payload), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (notification_id, user_id, type, title, body, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.NotificationID, n.UserID, n.Type, n.Title, n.Body, payload, n.CreatedAt)
	if err != nil {
		return depErr("insert notification", err)
	}
	return nil
}

func scanNotification(scan func(dest ...interface{}) error) (*domain.Notification, error) {
	var n domain.Notification
	var payload sql.NullString
	var readAt sql.NullTime
	if err := scan(&n.NotificationID, &n.UserID, &n.Type, &n.Title, &n.Body,
		&payload, &n.CreatedAt, &readAt); err != nil {
		return nil, err
	}
	if payload.Valid {
		n.Payload = []byte(payload.String)
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return &n, nil
}

const notificationColumns = `notification_id, user_id, type, title, body, payload, created_at, read_at`

// GetNotification retrieves a notification by ID.
func (s *SQLiteStore) GetNotification(ctx context.Context, notificationID string) (*domain.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE notification_id = ?`, notificationID)
	n, err := scanNotification(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: notification %s", domain.ErrNotFound, notificationID)
	}
	if err != nil {
		return nil, depErr("get notification", err)
	}
	return n, nil
}

// ListUnreadNotifications returns unread notifications, newest first.
func (s *SQLiteStore) ListUnreadNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = ? AND read_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, depErr("list notifications", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, depErr("scan notification", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, depErr("list notifications", err)
	}
	return out, nil
}

// MarkNotificationRead sets read_at once. Marking an already-read
// notification is a no-op, not an error.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, notificationID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = ? WHERE notification_id = ? AND read_at IS NULL`,
		at, notificationID)
	if err != nil {
		return depErr("mark notification read", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish already-read (idempotent success) from never-existed.
		if _, err := s.GetNotification(ctx, notificationID); err != nil {
			return err
		}
	}
	return nil
}
