package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var disabilityForm = json.RawMessage(`{
	"type": "object",
	"properties": {
		"disability_type": {"type": "string", "minLength": 1},
		"household_size": {"type": "integer", "minimum": 1}
	},
	"required": ["disability_type"]
}`)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name       string
		schema     json.RawMessage
		data       map[string]interface{}
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "empty schema accepts anything",
			schema:    nil,
			data:      map[string]interface{}{"anything": true},
			wantValid: true,
		},
		{
			name:      "valid document",
			schema:    disabilityForm,
			data:      map[string]interface{}{"disability_type": "visual", "household_size": 3},
			wantValid: true,
		},
		{
			name:       "missing required field",
			schema:     disabilityForm,
			data:       map[string]interface{}{"household_size": 2},
			wantValid:  false,
			wantFields: []string{"disability_type"},
		},
		{
			name:       "below minimum",
			schema:     disabilityForm,
			data:       map[string]interface{}{"disability_type": "hearing", "household_size": 0},
			wantValid:  false,
			wantFields: []string{"household_size"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateDocument(tt.schema, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			for _, f := range tt.wantFields {
				assert.Contains(t, res.Fields(), f)
			}
		})
	}
}

func TestValidateDocument_BrokenSchema(t *testing.T) {
	_, err := ValidateDocument(json.RawMessage(`{"type": 12}`), map[string]interface{}{})
	assert.Error(t, err)
}

func TestValidateExtension(t *testing.T) {
	allowed := []string{"jpg", "pdf", "docx"}

	ext, ok := ValidateExtension("medical-cert.PDF", allowed)
	assert.True(t, ok)
	assert.Equal(t, "pdf", ext)

	_, ok = ValidateExtension("payload.exe", allowed)
	assert.False(t, ok)

	_, ok = ValidateExtension("noext", allowed)
	assert.False(t, ok)
}
