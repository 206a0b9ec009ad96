package applications

import (
	"net/http"

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
	return &Handler{svc: svc, logger: logger.Component(log, "applications-http")}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Get("/", h.handleList)
		r.Get("/summary", h.handleSummary)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Get("/{id}/history", h.handleHistory)
	})
}

type submitRequest struct {
	CitizenID       int64                  `json:"citizen_id"`
	ServiceID       int64                  `json:"service_id"`
	ApplicationType string                 `json:"application_type"`
	ApplicationData map[string]interface{} `json:"application_data"`
	Priority        models.Priority        `json:"priority"`
}

type updateRequest struct {
	Status          *models.ApplicationStatus `json:"status"`
	AssignedTo      *int64                    `json:"assigned_to"`
	ReviewerNotes   *string                   `json:"reviewer_notes"`
	RejectionReason *string                   `json:"rejection_reason"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	var req submitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}

	// citizens may only apply for themselves
	if c, ok := actor.Role.(models.CitizenRole); ok {
		if req.CitizenID == 0 {
			req.CitizenID = c.CitizenID
		}
		if req.CitizenID != c.CitizenID {
			apperrors.WriteError(w, apperrors.NewForbiddenError("cannot apply on behalf of another citizen"), h.logger)
			return
		}
	}

	app, err := h.svc.Submit(r.Context(), actor, SubmitInput{
		CitizenID:       req.CitizenID,
		ServiceID:       req.ServiceID,
		ApplicationType: req.ApplicationType,
		ApplicationData: req.ApplicationData,
		Priority:        req.Priority,
	})
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"applicationId":   app.ID,
		"referenceNumber": app.ReferenceNumber,
		"slaDueDate":      app.SLADueDate.Format("2006-01-02"),
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}

	q := r.URL.Query()
	f := models.ApplicationFilter{
		Status: models.ApplicationStatus(q.Get("status")),
		Sector: q.Get("sector"),
	}
	if f.DateFrom, err = httputil.QueryDate(r, "dateFrom"); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	if f.DateTo, err = httputil.QueryDate(r, "dateTo"); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	if f.Page, err = httputil.QueryInt(r, "page", 1); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	if f.Limit, err = httputil.QueryInt(r, "limit", 0); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}

	page, err := h.svc.ListForActor(r.Context(), actor, f)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	sum, err := h.svc.Summary(r.Context(), actor)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
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
	app, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
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
	var req updateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}

	if _, err := h.svc.Update(r.Context(), actor, id, UpdateInput(req)); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
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
	entries, err := h.svc.History(r.Context(), actor, id)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}
