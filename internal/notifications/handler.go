package notifications

import (
	"net/http"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/httputil"
	"pwd-access/internal/common/logger"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc    *Service
	logger logger.Logger
}

func NewHandler(svc *Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.Component(log, "notifications-http")}
}

// Register mounts the polling endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Get("/notifications/unread-count", h.handleUnreadCount)
	r.Put("/notifications/{id}", h.handleMarkRead)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}

	items, err := h.svc.List(r.Context(), actor.UserID, limit)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"notifications": items})
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	n, err := h.svc.UnreadCount(r.Context(), actor.UserID)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.MarkRead(r.Context(), id, actor.UserID); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
