// internal/models/actor.go
package models

import "fmt"

// Role is one of SuperAdmin, SectorAdmin or CitizenRole.
type Role interface {
	isRole()
	Name() string
}

type SuperAdmin struct{}

type SectorAdmin struct {
	Sector string
}

type CitizenRole struct {
	CitizenID int64
}

func (SuperAdmin) isRole()  {}
func (SectorAdmin) isRole() {}
func (CitizenRole) isRole() {}

func (SuperAdmin) Name() string  { return "super_admin" }
func (SectorAdmin) Name() string { return "sector_admin" }
func (CitizenRole) Name() string { return "citizen" }

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) String() string {
	switch r := a.Role.(type) {
	case SectorAdmin:
		return fmt.Sprintf("user %d (%s:%s)", a.UserID, r.Name(), r.Sector)
	case CitizenRole:
		return fmt.Sprintf("user %d (%s:%d)", a.UserID, r.Name(), r.CitizenID)
	case SuperAdmin:
		return fmt.Sprintf("user %d (%s)", a.UserID, r.Name())
	}
	return fmt.Sprintf("user %d (unknown)", a.UserID)
}

// Sector names the office sectors services belong to.
const (
	SectorEducation  = "education"
	SectorHealthcare = "healthcare"
	SectorEmployment = "employment"
	SectorEmergency  = "emergency"
)

func ValidSector(s string) bool {
	switch s {
	case SectorEducation, SectorHealthcare, SectorEmployment, SectorEmergency:
		return true
	}
	return false
}

// Document is a stored attachment reference. The bytes live with the file-storage collaborator.
type Document struct {
	ID             int64  `json:"documentId"`
	CitizenID      int64  `json:"citizenId"`
	DocumentTypeID int64  `json:"documentTypeId"`
	ApplicationID  *int64 `json:"applicationId,omitempty"`
	OriginalName   string `json:"originalName"`
	StoredRef      string `json:"storedReference"`
	SizeBytes      int64  `json:"sizeBytes"`
}
