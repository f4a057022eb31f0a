package domain

import "encoding/json"

// StartSessionRequest starts a consultation between two principals.
type StartSessionRequest struct {
	PatientID   string `json:"patient_id"`
	ClinicianID string `json:"clinician_id"`
}

// SendMessageRequest is the payload shared by the synchronous HTTP call and
// the websocket send_message event.
type SendMessageRequest struct {
	SessionID  string     `json:"session_id"`
	SenderID   string     `json:"sender_id"`
	SenderRole SenderRole `json:"sender_role"`
	Content    string     `json:"content"`
}

// ValidateReportRequest is the clinician sign-off on a diagnostic report.
type ValidateReportRequest struct {
	ClinicianID string `json:"clinician_id"`
	DoctorNotes string `json:"doctor_notes"`
}

// SendNotificationRequest creates and pushes a notification.
type SendNotificationRequest struct {
	UserID  string           `json:"user_id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Body    string           `json:"body"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

// ParticipantInfo is the denormalized display shape for one participant.
type ParticipantInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// SessionDetail is the fixed read model returned on session start: the
// session plus display fields for both participants, fetched in one joined
// read for the initial render.
type SessionDetail struct {
	Session
	Patient   ParticipantInfo `json:"patient"`
	Clinician ParticipantInfo `json:"clinician"`
}

// SessionTranscript is the fixed read model returned on session end: the
// closed session plus its full ordered message list.
type SessionTranscript struct {
	Session
	Messages []Message `json:"messages"`
}
