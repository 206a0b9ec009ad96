package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"

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
	return &Handler{svc: svc, logger: logger.Component(log, "documents-http")}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/documents", h.handleUpload)
}

// handleUpload expects multipart fields citizen_id, document_type_id,
// optional application_id, and the file under "document".
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	actor, err := httputil.Actor(r)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.svc.MaxBytes()+(1<<20))
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			apperrors.WriteError(w, apperrors.NewValidationError("upload exceeds the size limit"), h.logger)
			return
		}
		apperrors.WriteError(w, apperrors.NewValidationError("expected a multipart form"), h.logger)
		return
	}

	in := UploadInput{}
	if in.CitizenID, err = formInt(r, "citizen_id"); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	if in.DocumentTypeID, err = formInt(r, "document_type_id"); err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	appID, err := formInt(r, "application_id")
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	if appID > 0 {
		in.ApplicationID = &appID
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		apperrors.WriteError(w, apperrors.NewValidationError("document file is required"), h.logger)
		return
	}
	defer file.Close()
	if in.Content, err = io.ReadAll(file); err != nil {
		apperrors.WriteError(w, apperrors.NewSystemError("read upload", err), h.logger)
		return
	}
	in.OriginalName = header.Filename

	doc, err := h.svc.Upload(r.Context(), actor, in)
	if err != nil {
		apperrors.WriteError(w, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func formInt(r *http.Request, name string) (int64, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(name + " must be an integer")
	}
	return n, nil
}
