// internal/models/application.go
package models

import "time"

type ApplicationStatus string

const (
	StatusSubmitted ApplicationStatus = "submitted"
	StatusInReview  ApplicationStatus = "in_review"
	StatusApproved  ApplicationStatus = "approved"
	StatusRejected  ApplicationStatus = "rejected"
	StatusCompleted ApplicationStatus = "completed"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusInReview, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Application struct {
	ID              int64                  `json:"applicationId"`
	ReferenceNumber string                 `json:"referenceNumber"`
	CitizenID       int64                  `json:"citizenId"`
	ServiceID       int64                  `json:"serviceId"`
	ApplicationType string                 `json:"applicationType"`
	Status          ApplicationStatus      `json:"status"`
	Priority        Priority               `json:"priority"`
	SLADueDate      time.Time              `json:"slaDueDate"`
	AssignedTo      *int64                 `json:"assignedTo,omitempty"`
	SubmittedAt     time.Time              `json:"submittedAt"`
	ReviewedAt      *time.Time             `json:"reviewedAt,omitempty"`
	CompletedAt     *time.Time             `json:"completedAt,omitempty"`
	ReviewerNotes   string                 `json:"reviewerNotes,omitempty"`
	RejectionReason string                 `json:"rejectionReason,omitempty"`
	ApplicationData map[string]interface{} `json:"applicationData,omitempty"`

	// Joined for display and access checks.
	ServiceName   string `json:"serviceName,omitempty"`
	Sector        string `json:"sector,omitempty"`
	CitizenName   string `json:"citizenName,omitempty"`
	CitizenUserID *int64 `json:"-"`
}

// ApplicationFilter narrows list queries. Zero values mean "no filter".
type ApplicationFilter struct {
	Status    ApplicationStatus
	Sector    string
	CitizenID int64
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	Limit     int
}

func (f ApplicationFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

type ApplicationPage struct {
	Items []Application `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// ApplicationSummary is the workload view shown on review dashboards.
type ApplicationSummary struct {
	ByStatus   map[ApplicationStatus]int `json:"byStatus"`
	Overdue    int                       `json:"overdue"`
	AssignedMe int                       `json:"assignedToMe"`
	DueSoon    int                       `json:"dueSoon"`
}
