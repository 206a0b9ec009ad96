package applications

import (
	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/models"
)

// transitions is the complete set of legal status moves.
var transitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusSubmitted: {models.StatusInReview, models.StatusRejected},
	models.StatusInReview:  {models.StatusApproved, models.StatusRejected},
	models.StatusApproved:  {models.StatusCompleted},
}

func CanTransition(from, to models.ApplicationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns InvalidState naming both statuses when from -> to is not allowed.
func ValidateTransition(from, to models.ApplicationStatus) error {
	if !CanTransition(from, to) {
		return apperrors.NewInvalidStateError(string(from), string(to))
	}
	return nil
}

// NextStatuses lists where an application can go from s.
func NextStatuses(s models.ApplicationStatus) []models.ApplicationStatus {
	return append([]models.ApplicationStatus(nil), transitions[s]...)
}

func assignable(s models.ApplicationStatus) bool {
	return s == models.StatusSubmitted || s == models.StatusInReview
}

func statusLabel(s models.ApplicationStatus) string {
	switch s {
	case models.StatusInReview:
		return "placed under review"
	case models.StatusApproved:
		return "approved"
	case models.StatusRejected:
		return "rejected"
	case models.StatusCompleted:
		return "completed"
	}
	return string(s)
}
