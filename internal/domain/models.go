package domain

import (
	"encoding/json"
	"time"
)

// Patient is a registered patient principal.
type Patient struct {
	PatientID string    `json:"patient_id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Clinician is a registered clinician principal.
type Clinician struct {
	ClinicianID string    `json:"clinician_id"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar,omitempty"`
	Speciality  string    `json:"speciality,omitempty"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session represents one consultation between a patient and a clinician.
// MessageCount is server-maintained and equals the number of message rows
// referencing the session.
type Session struct {
	SessionID    string       `json:"session_id"`
	PatientID    string       `json:"patient_id"`
	ClinicianID  string       `json:"clinician_id"`
	State        SessionState `json:"state"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	MessageCount int          `json:"message_count"`
}

// Message is a single transcript entry. Seq is assigned inside the insert
// transaction and is strictly increasing per session; transcript order and
// catch-up queries key off it. Sender display fields are resolved once at
// write time from the session's patient or clinician.
type Message struct {
	MessageID    string     `json:"message_id"`
	SessionID    string     `json:"session_id"`
	Seq          int        `json:"seq"`
	SenderID     string     `json:"sender_id"`
	SenderRole   SenderRole `json:"sender_role"`
	SenderName   string     `json:"sender_name"`
	SenderAvatar string     `json:"sender_avatar,omitempty"`
	Content      string     `json:"content"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TranscriptEntry is the anonymized view of a message handed to the
// analyzer: role and content only, no sender identity.
type TranscriptEntry struct {
	Role    SenderRole `json:"role"`
	Content string     `json:"content"`
}

// DiagnosticReport is the generated analysis for a session plus the
// clinician sign-off. One report exists per session; validation is one-way.
type DiagnosticReport struct {
	ReportID    string     `json:"report_id"`
	SessionID   string     `json:"session_id"`
	Analysis    string     `json:"analysis"`
	DoctorNotes string     `json:"doctor_notes,omitempty"`
	IsValidated bool       `json:"is_validated"`
	ValidatedBy string     `json:"validated_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
}

// Notification is a durable notification record for a user.
type Notification struct {
	NotificationID string           `json:"notification_id"`
	UserID         string           `json:"user_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Body           string           `json:"body"`
	Payload        json.RawMessage  `json:"payload,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
}
