package model

import "time"

// NotificationType identifies why a notification was created.
type NotificationType string

const (
	NotificationTaskAssigned    NotificationType = "task_assigned"
	NotificationTaskUpdated     NotificationType = "task_updated"
	NotificationDueSoon         NotificationType = "due_soon"
	NotificationOverdue         NotificationType = "overdue"
	NotificationStuck           NotificationType = "stuck"
	NotificationWeeklyReport    NotificationType = "weekly_report"
	NotificationApprovalRequest NotificationType = "approval_request"
)

// Notification is a per-user record surfaced in the UI. It is created
// once and only ever mutated by marking it read.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id" firestore:"-"`

	// UserID is the recipient.
	UserID string `json:"user_id" db:"user_id" firestore:"user_id"`

	Type NotificationType `json:"type" db:"type" firestore:"type"`

	// Title and Message are the display text.
	Title   string `json:"title" db:"title" firestore:"title"`
	Message string `json:"message" db:"message" firestore:"message"`

	// Link is an optional deep link into the application.
	Link string `json:"link,omitempty" db:"link" firestore:"link"`

	// EntityKind and EntityID reference the related task or project.
	// Both are empty for notifications not tied to an entity.
	EntityKind EntityKind `json:"entity_kind,omitempty" db:"entity_kind" firestore:"entity_kind"`
	EntityID   string     `json:"entity_id,omitempty" db:"entity_id" firestore:"entity_id"`

	// Read indicates whether the user has seen this notification.
	Read   bool       `json:"read" db:"read" firestore:"read"`
	ReadAt *time.Time `json:"read_at,omitempty" db:"read_at" firestore:"read_at"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at" firestore:"created_at"`
}

// Ref returns the entity reference carried by the notification, if any.
func (n Notification) Ref() (EntityRef, bool) {
	if n.EntityKind == "" || n.EntityID == "" {
		return EntityRef{}, false
	}
	return EntityRef{Kind: n.EntityKind, ID: n.EntityID}, true
}
