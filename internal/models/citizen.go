// internal/models/citizen.go
package models

import "time"

type PwdIDStatus string

const (
	PwdIDNone       PwdIDStatus = "none"
	PwdIDApplied    PwdIDStatus = "applied"
	PwdIDProcessing PwdIDStatus = "processing"
	PwdIDApproved   PwdIDStatus = "approved"
	PwdIDIssued     PwdIDStatus = "issued"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func (v VerificationStatus) Valid() bool {
	return v == VerificationPending || v == VerificationVerified || v == VerificationRejected
}

type Citizen struct {
	ID                 int64              `json:"citizenId"`
	UserID             *int64             `json:"userId,omitempty"`
	FirstName          string             `json:"firstName"`
	LastName           string             `json:"lastName"`
	DisabilityType     string             `json:"disabilityType,omitempty"`
	PwdIDNumber        string             `json:"pwdIdNumber,omitempty"`
	PwdIDStatus        PwdIDStatus        `json:"pwdIdStatus"`
	PwdIDExpiry        *time.Time         `json:"pwdIdExpiryDate,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
}

func (c Citizen) FullName() string {
	return c.FirstName + " " + c.LastName
}

// RenewalCandidate is a citizen whose issued PWD ID falls inside the renewal window.
type RenewalCandidate struct {
	CitizenID       int64     `json:"citizenId"`
	UserID          *int64    `json:"-"`
	FullName        string    `json:"fullName"`
	PwdIDNumber     string    `json:"pwdIdNumber"`
	ExpiryDate      time.Time `json:"expiryDate"`
	DaysUntilExpiry int       `json:"daysUntilExpiry"`
}
