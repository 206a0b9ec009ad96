package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Error(msg string, _ map[string]interface{}) {
	l.messages = append(l.messages, msg)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidState, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeSystem, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.code))
		})
	}
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	base := NewNotFoundError("application", 42)
	wrapped := fmt.Errorf("loading: %w", base)

	assert.True(t, HasCode(wrapped, ErrCodeNotFound))
	assert.False(t, HasCode(wrapped, ErrCodeConflict))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrCodeNotFound))
}

func TestInvalidStateError_NamesBothStates(t *testing.T) {
	err := NewInvalidStateError("completed", "submitted")

	assert.Contains(t, err.Error(), "completed")
	assert.Contains(t, err.Error(), "submitted")
	assert.Equal(t, "completed", err.Metadata["current"])
	assert.Equal(t, "submitted", err.Metadata["attempted"])
}

func TestWriteError_ClientError(t *testing.T) {
	rec := httptest.NewRecorder()
	log := &recordingLogger{}

	WriteError(rec, NewValidationError("service_id is required"), log)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
	assert.Equal(t, "service_id is required", body["details"])
	assert.Empty(t, log.messages)
}

func TestWriteError_HidesSystemDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	log := &recordingLogger{}

	WriteError(rec, fmt.Errorf("pq: connection refused"), log)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Len(t, log.messages, 1)
}
