// internal/models/activity.go
package models

import "time"

// Activity log actions.
const (
	ActionSubmitApplication   = "submit_application"
	ActionAssignApplication   = "assign_application"
	ActionUpdateApplication   = "update_application_status"
	ActionUpdateReviewerNotes = "update_reviewer_notes"
	ActionVerifyCitizen       = "verify_citizen"
	ActionIssuePwdID          = "issue_pwd_id"
	ActionUploadDocument      = "upload_document"
	ActionRenewalScan         = "renewal_scan"
	ActionFailedLogin         = "failed_login"
)

type ActivityEntry struct {
	ID        int64                  `json:"logId"`
	UserID    *int64                 `json:"userId,omitempty"`
	Action    string                 `json:"action"`
	TableName string                 `json:"tableName,omitempty"`
	RecordID  *int64                 `json:"recordId,omitempty"`
	OldValues map[string]interface{} `json:"oldValues,omitempty"`
	NewValues map[string]interface{} `json:"newValues,omitempty"`
	IPAddress string                 `json:"ipAddress,omitempty"`
	UserAgent string                 `json:"userAgent,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}
