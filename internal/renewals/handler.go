package renewals

import (
	"net/http"

	"pwd-access/internal/access"
	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/httputil"
	"pwd-access/internal/common/logger"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	scanner    *Scanner
	windowDays int
	logger     logger.Logger
}

func NewHandler(scanner *Scanner, windowDays int, log logger.Logger) *Handler {
	return &Handler{scanner: scanner, windowDays: windowDays, logger: logger.Component(log, "renewals-http")}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/renewal-scan", h.handleScan)
}

// handleScan accepts an optional ?windowDays= override.
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	if err := access.RequireStaff(actor); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	window, err := httputil.QueryInt(r, "windowDays", h.windowDays)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}

	res, err := h.scanner.Scan(r.Context(), window)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
