// Package httputil holds the JSON helpers shared by the HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/requestctx"
	"pwd-access/internal/models"

	"github.com/go-chi/chi/v5"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// DecodeJSON reads a JSON body into dst. Malformed input is a validation error.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("request body is empty")
		}
		return apperrors.NewValidationError("invalid JSON: " + err.Error())
	}
	return nil
}

// IDParam parses a positive integer URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(name + " must be a positive integer")
	}
	return id, nil
}

// QueryInt parses an optional integer query parameter, falling back to def.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name + " must be an integer")
	}
	return n, nil
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperrors.NewValidationError(name + " must be a date (YYYY-MM-DD)")
	}
	return &d, nil
}

// Actor returns the caller resolved by the actor middleware.
func Actor(r *http.Request) (models.Actor, error) {
	a, ok := requestctx.ActorFrom(r.Context())
	if !ok {
		return models.Actor{}, apperrors.NewUnauthorizedError("no authenticated actor")
	}
	return a, nil
}
