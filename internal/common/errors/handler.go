package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// Logger is the subset of logger.Logger needed to report server-side failures.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

type errorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Meta    map[string]interface{} `json:"metadata,omitempty"`
}

// WriteError translates any error into the JSON error envelope.
func WriteError(w http.ResponseWriter, err error, log Logger) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	resp := errorResponse{
		Error:   string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
		Meta:    stdErr.Metadata,
	}
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", map[string]interface{}{
				"errorCode": string(stdErr.Code),
				"details":   stdErr.Details,
				"retryable": stdErr.Retryable,
			})
		}
		resp.Details = ""
		resp.Meta = nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeSystem,
		Message:   "Internal server error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
