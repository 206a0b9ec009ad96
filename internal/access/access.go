// Package access decides which applications an actor may see or change.
//
// Super-admins see everything, sector admins see applications for services in
// their sector, and citizens see only their own applications. Workflow
// services trust the caller to have applied this filter.
package access

import (
	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/models"
)

// CanView reports whether actor may read app.
func CanView(actor models.Actor, app models.Application) bool {
	switch r := actor.Role.(type) {
	case models.SuperAdmin:
		return true
	case models.SectorAdmin:
		return r.Sector != "" && app.Sector == r.Sector
	case models.CitizenRole:
		return r.CitizenID > 0 && app.CitizenID == r.CitizenID
	}
	return false
}

// CanReview reports whether actor may assign or change the status of app.
// Citizens never review, not even their own applications.
func CanReview(actor models.Actor, app models.Application) bool {
	switch actor.Role.(type) {
	case models.SuperAdmin, models.SectorAdmin:
		return CanView(actor, app)
	}
	return false
}

// ScopeQuery narrows f to what actor may see. A sector admin asking for a
// different sector gets a filter that can match nothing.
func ScopeQuery(actor models.Actor, f models.ApplicationFilter) (models.ApplicationFilter, error) {
	switch r := actor.Role.(type) {
	case models.SuperAdmin:
		return f, nil
	case models.SectorAdmin:
		if r.Sector == "" {
			return f, apperrors.NewForbiddenError("sector admin without a sector")
		}
		if f.Sector != "" && f.Sector != r.Sector {
			return f, apperrors.NewForbiddenError("sector " + f.Sector + " is outside your scope")
		}
		f.Sector = r.Sector
		return f, nil
	case models.CitizenRole:
		if r.CitizenID <= 0 {
			return f, apperrors.NewForbiddenError("citizen account is not linked to a record")
		}
		f.CitizenID = r.CitizenID
		return f, nil
	}
	return f, apperrors.NewUnauthorizedError("unknown role")
}

// RequireView returns Forbidden unless actor may view app.
func RequireView(actor models.Actor, app models.Application) error {
	if !CanView(actor, app) {
		return apperrors.NewForbiddenError("application is outside your scope")
	}
	return nil
}

func RequireReview(actor models.Actor, app models.Application) error {
	if !CanReview(actor, app) {
		return apperrors.NewForbiddenError("not allowed to review this application")
	}
	return nil
}

// RequireSuperAdmin guards office-wide mutations such as citizen verification.
func RequireSuperAdmin(actor models.Actor) error {
	if _, ok := actor.Role.(models.SuperAdmin); !ok {
		return apperrors.NewForbiddenError("super admin role required")
	}
	return nil
}

// RequireStaff admits super-admins and sector admins.
func RequireStaff(actor models.Actor) error {
	switch actor.Role.(type) {
	case models.SuperAdmin, models.SectorAdmin:
		return nil
	}
	return apperrors.NewForbiddenError("staff role required")
}
