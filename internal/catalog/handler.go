package catalog

import (
	"net/http"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/httputil"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/models"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	catalog *Catalog
	logger  logger.Logger
}

func NewHandler(c *Catalog, log logger.Logger) *Handler {
	return &Handler{catalog: c, logger: logger.Component(log, "catalog-http")}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/services", h.handleList)
	r.Get("/services/{id}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sector := r.URL.Query().Get("sector")
	if sector != "" && !models.ValidSector(sector) {
		apperrors.WriteError(w, apperrors.NewValidationError("unknown sector "+sector), h.logger)
		return
	}
	items, err := h.catalog.ListActive(r.Context(), sector)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"services": items})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	svc, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, svc)
}
