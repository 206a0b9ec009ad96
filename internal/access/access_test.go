package access

import (
	"testing"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	superAdmin  = models.Actor{UserID: 1, Role: models.SuperAdmin{}}
	healthAdmin = models.Actor{UserID: 2, Role: models.SectorAdmin{Sector: models.SectorHealthcare}}
	citizen42   = models.Actor{UserID: 10, Role: models.CitizenRole{CitizenID: 42}}

	healthApp = models.Application{ID: 1, CitizenID: 42, Sector: models.SectorHealthcare}
	eduApp    = models.Application{ID: 2, CitizenID: 43, Sector: models.SectorEducation}
)

func TestCanView(t *testing.T) {
	tests := []struct {
		name  string
		actor models.Actor
		app   models.Application
		want  bool
	}{
		{"super admin sees healthcare", superAdmin, healthApp, true},
		{"super admin sees education", superAdmin, eduApp, true},
		{"sector admin sees own sector", healthAdmin, healthApp, true},
		{"sector admin blind to other sector", healthAdmin, eduApp, false},
		{"citizen sees own", citizen42, healthApp, true},
		{"citizen blind to others", citizen42, eduApp, false},
		{"nil role sees nothing", models.Actor{UserID: 5}, healthApp, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.actor, tt.app))
		})
	}
}

func TestCanReview(t *testing.T) {
	assert.True(t, CanReview(superAdmin, eduApp))
	assert.True(t, CanReview(healthAdmin, healthApp))
	assert.False(t, CanReview(healthAdmin, eduApp))
	assert.False(t, CanReview(citizen42, healthApp))
}

func TestScopeQuery(t *testing.T) {
	t.Run("super admin keeps filters", func(t *testing.T) {
		f, err := ScopeQuery(superAdmin, models.ApplicationFilter{Sector: models.SectorEducation})
		require.NoError(t, err)
		assert.Equal(t, models.SectorEducation, f.Sector)
		assert.Zero(t, f.CitizenID)
	})

	t.Run("sector admin pinned to sector", func(t *testing.T) {
		f, err := ScopeQuery(healthAdmin, models.ApplicationFilter{Status: models.StatusSubmitted})
		require.NoError(t, err)
		assert.Equal(t, models.SectorHealthcare, f.Sector)
		assert.Equal(t, models.StatusSubmitted, f.Status)
	})

	t.Run("sector admin asking for another sector", func(t *testing.T) {
		_, err := ScopeQuery(healthAdmin, models.ApplicationFilter{Sector: models.SectorEducation})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
	})

	t.Run("citizen pinned to self", func(t *testing.T) {
		f, err := ScopeQuery(citizen42, models.ApplicationFilter{CitizenID: 43})
		require.NoError(t, err)
		assert.Equal(t, int64(42), f.CitizenID)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := ScopeQuery(models.Actor{UserID: 9}, models.ApplicationFilter{})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnauthorized))
	})
}

func TestRoleGuards(t *testing.T) {
	assert.NoError(t, RequireSuperAdmin(superAdmin))
	assert.True(t, apperrors.HasCode(RequireSuperAdmin(healthAdmin), apperrors.ErrCodeForbidden))
	assert.NoError(t, RequireStaff(healthAdmin))
	assert.Error(t, RequireStaff(citizen42))
	assert.NoError(t, RequireView(citizen42, healthApp))
	assert.Error(t, RequireReview(citizen42, healthApp))
}
