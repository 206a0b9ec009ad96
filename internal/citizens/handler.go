package citizens

import (
	"net/http"
	"time"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/httputil"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/models"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc    *Service
	logger logger.Logger
}

func NewHandler(svc *Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.Component(log, "citizens-http")}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/citizens/{id}", h.handleGet)
	r.Put("/citizens/{id}/verification", h.handleVerification)
	r.Put("/citizens/{id}/pwd-id", h.handleIssue)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	c, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleVerification(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	var req struct {
		Status models.VerificationStatus `json:"status"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	if _, err := h.svc.SetVerification(r.Context(), actor, id, req.Status); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	var req struct {
		PwdIDNumber string `json:"pwdIdNumber"`
		ExpiryDate  string `json:"expiryDate"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	var expiry time.Time
	if req.ExpiryDate != "" {
		if expiry, err = time.Parse("2006-01-02", req.ExpiryDate); err != nil {
			apperrors.WriteError(w, apperrors.NewValidationError("expiryDate must be a date (YYYY-MM-DD)"), h.logger)
			return
		}
	}
	if _, err := h.svc.IssuePwdID(r.Context(), actor, id, req.PwdIDNumber, expiry); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
