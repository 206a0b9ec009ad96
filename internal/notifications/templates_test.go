package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	title, msg, ok := Render(TemplateApplicationStatus, map[string]interface{}{
		"referenceNumber": "APP-2024-0042",
		"status":          "approved",
	})

	assert.True(t, ok)
	assert.Equal(t, "Application Status Updated", title)
	assert.Equal(t, "Your application APP-2024-0042 has been approved", msg)
}

func TestRender_MissingValuesDropped(t *testing.T) {
	_, msg, ok := Render(TemplateRenewalStaff, map[string]interface{}{"daysUntilExpiry": 12})

	assert.True(t, ok)
	assert.Equal(t, "'s PWD ID expires in 12 days", msg)
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, ok := Render("birthday", nil)
	assert.False(t, ok)
}
