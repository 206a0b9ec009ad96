// internal/models/service.go
package models

import (
	"encoding/json"
	"time"
)

type Service struct {
	ID                 int64           `json:"serviceId"`
	Name               string          `json:"serviceName"`
	Sector             string          `json:"sector"`
	Capacity           *int            `json:"capacity,omitempty"`
	ProcessingTimeDays int             `json:"processingTimeDays"`
	ApplicationStart   *time.Time      `json:"applicationStartDate,omitempty"`
	ApplicationEnd     *time.Time      `json:"applicationEndDate,omitempty"`
	Status             string          `json:"status"`
	FormSchema         json.RawMessage `json:"formSchema,omitempty"`
}

const ServiceActive = "active"

// AcceptingOn reports whether the service is active and inside its application window on day.
func (s Service) AcceptingOn(day time.Time) bool {
	if s.Status != ServiceActive {
		return false
	}
	d := day.Format("2006-01-02")
	if s.ApplicationStart != nil && d < s.ApplicationStart.Format("2006-01-02") {
		return false
	}
	if s.ApplicationEnd != nil && d > s.ApplicationEnd.Format("2006-01-02") {
		return false
	}
	return true
}
