// Package domain defines the core domain models for the consultation service.
package domain

// SessionState represents the lifecycle state of a consultation session.
type SessionState string

const (
	SessionStateOpen   SessionState = "open"
	SessionStateClosed SessionState = "closed"
)

// SenderRole identifies which side of a consultation authored a message.
type SenderRole string

const (
	SenderRolePatient   SenderRole = "patient"
	SenderRoleClinician SenderRole = "clinician"
)

// Valid reports whether the role is one of the two closed values.
func (r SenderRole) Valid() bool {
	return r == SenderRolePatient || r == SenderRoleClinician
}

// ActorRole is the role claim carried by a verified principal.
type ActorRole string

const (
	ActorRolePatient   ActorRole = "patient"
	ActorRoleClinician ActorRole = "clinician"
	ActorRoleAdmin     ActorRole = "admin"
)

// NotificationType represents the type of a notification.
type NotificationType string

const (
	NotificationTypeChatRequest     NotificationType = "chat_request"
	NotificationTypeDiagnosticReady NotificationType = "diagnostic_ready"
	NotificationTypePostLiked       NotificationType = "post_liked"
	NotificationTypeNewFollower     NotificationType = "new_follower"
	NotificationTypeComment         NotificationType = "comment"
)

// Valid reports whether the type is one of the closed values.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeChatRequest, NotificationTypeDiagnosticReady,
		NotificationTypePostLiked, NotificationTypeNewFollower, NotificationTypeComment:
		return true
	}
	return false
}
