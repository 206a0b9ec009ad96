// internal/models/notification.go
package models

import "time"

type NotificationPriority string

const (
	NotificationLow    NotificationPriority = "low"
	NotificationMedium NotificationPriority = "medium"
	NotificationHigh   NotificationPriority = "high"
)

// Rank orders priorities for threshold comparisons.
func (p NotificationPriority) Rank() int {
	switch p {
	case NotificationHigh:
		return 3
	case NotificationMedium:
		return 2
	case NotificationLow:
		return 1
	}
	return 0
}

// Notification types emitted by the workflow.
const (
	TypeNewApplication      = "new_application"
	TypeApplicationStatus   = "application_status"
	TypeApplicationAssigned = "application_assigned"
	TypeIDRenewal           = "id_renewal"
	TypeVerification        = "verification"
	TypePwdIDIssued         = "pwd_id_issued"
)

type Notification struct {
	ID          int64                `json:"notificationId"`
	UserID      int64                `json:"userId"`
	Type        string               `json:"type"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	RelatedID   *int64               `json:"relatedId,omitempty"`
	RelatedType string               `json:"relatedType,omitempty"`
	Priority    NotificationPriority `json:"priority"`
	IsRead      bool                 `json:"isRead"`
	ReadAt      *time.Time           `json:"readAt,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// Contact is where out-of-band copies of a notification are delivered.
type Contact struct {
	Email string
	Phone string
}
