package applications

import (
	"testing"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.ApplicationStatus
		allowed  bool
	}{
		{models.StatusSubmitted, models.StatusInReview, true},
		{models.StatusSubmitted, models.StatusRejected, true},
		{models.StatusInReview, models.StatusApproved, true},
		{models.StatusInReview, models.StatusRejected, true},
		{models.StatusApproved, models.StatusCompleted, true},

		{models.StatusSubmitted, models.StatusApproved, false},
		{models.StatusSubmitted, models.StatusCompleted, false},
		{models.StatusInReview, models.StatusSubmitted, false},
		{models.StatusApproved, models.StatusRejected, false},
		{models.StatusRejected, models.StatusApproved, false},
		{models.StatusCompleted, models.StatusInReview, false},
		{models.StatusSubmitted, models.StatusSubmitted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateTransition_NamesBothStatuses(t *testing.T) {
	err := ValidateTransition(models.StatusCompleted, models.StatusInReview)

	std, ok := apperrors.AsStandard(err)
	if assert.True(t, ok) {
		assert.Equal(t, apperrors.ErrCodeInvalidState, std.Code)
		assert.Equal(t, "completed", std.Metadata["current"])
		assert.Equal(t, "in_review", std.Metadata["attempted"])
	}
	assert.NoError(t, ValidateTransition(models.StatusApproved, models.StatusCompleted))
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	assert.Empty(t, NextStatuses(models.StatusRejected))
	assert.Empty(t, NextStatuses(models.StatusCompleted))
	assert.ElementsMatch(t,
		[]models.ApplicationStatus{models.StatusInReview, models.StatusRejected},
		NextStatuses(models.StatusSubmitted))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "placed under review", statusLabel(models.StatusInReview))
	assert.Equal(t, "approved", statusLabel(models.StatusApproved))
}
