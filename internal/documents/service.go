// Package documents accepts citizen attachments. Bytes go to a FileStorage;
// only the returned reference is persisted.
package documents

import (
	"context"
	"net/http"
	"strings"

	"pwd-access/internal/activitylog"
	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/validation"
	"pwd-access/internal/models"
)

var DefaultAllowedTypes = []string{"jpg", "jpeg", "png", "pdf", "doc", "docx"}

const DefaultMaxBytes int64 = 10 << 20

// sniffed content types accepted per extension
var contentTypes = map[string][]string{
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"png":  {"image/png"},
	"pdf":  {"application/pdf"},
	"doc":  {"application/octet-stream", "application/msword"},
	"docx": {"application/zip", "application/octet-stream"},
}

type Recorder interface {
	Record(ctx context.Context, e activitylog.Entry)
}

type Service struct {
	storage  FileStorage
	store    Store
	audit    Recorder
	allowed  []string
	maxBytes int64
	logger   logger.Logger
}

func NewService(storage FileStorage, store Store, audit Recorder, allowed []string, maxBytes int64, log logger.Logger) *Service {
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{
		storage:  storage,
		store:    store,
		audit:    audit,
		allowed:  allowed,
		maxBytes: maxBytes,
		logger:   logger.Component(log, "documents"),
	}
}

type UploadInput struct {
	CitizenID      int64
	DocumentTypeID int64
	ApplicationID  *int64
	OriginalName   string
	Content        []byte
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

func (s *Service) Upload(ctx context.Context, actor models.Actor, in UploadInput) (*models.Document, error) {
	switch r := actor.Role.(type) {
	case models.SuperAdmin, models.SectorAdmin:
	case models.CitizenRole:
		if in.CitizenID == 0 {
			in.CitizenID = r.CitizenID
		}
		if in.CitizenID != r.CitizenID {
			return nil, apperrors.NewForbiddenError("cannot upload for another citizen")
		}
	default:
		return nil, apperrors.NewUnauthorizedError("unknown role")
	}

	fields := map[string]string{}
	if in.CitizenID <= 0 {
		fields["citizen_id"] = "is required"
	}
	if in.DocumentTypeID <= 0 {
		fields["document_type_id"] = "is required"
	}
	ext, ok := validation.ValidateExtension(in.OriginalName, s.allowed)
	if !ok {
		fields["file"] = "type must be one of " + strings.Join(s.allowed, ", ")
	}
	switch size := int64(len(in.Content)); {
	case size == 0:
		fields["file"] = "is empty"
	case size > s.maxBytes:
		fields["file"] = "exceeds the upload size limit"
	case ok && !sniffMatches(ext, in.Content):
		fields["file"] = "content does not match the ." + ext + " extension"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields)
	}

	ref, err := s.storage.Save(ctx, in.CitizenID, in.DocumentTypeID, in.Content, in.OriginalName)
	if err != nil {
		return nil, apperrors.NewSystemError("store document", err)
	}

	doc := &models.Document{
		CitizenID:      in.CitizenID,
		DocumentTypeID: in.DocumentTypeID,
		ApplicationID:  in.ApplicationID,
		OriginalName:   in.OriginalName,
		StoredRef:      ref,
		SizeBytes:      int64(len(in.Content)),
	}
	id, err := s.store.Insert(ctx, doc)
	if err != nil {
		if rmErr := s.storage.Remove(ctx, ref); rmErr != nil {
			s.logger.Warn("orphaned document file", map[string]interface{}{"ref": ref, "error": rmErr})
		}
		return nil, apperrors.NewSystemError("record document", err)
	}
	doc.ID = id

	s.audit.Record(ctx, activitylog.Entry{
		UserID:    &actor.UserID,
		Action:    models.ActionUploadDocument,
		TableName: "citizen_documents",
		RecordID:  &doc.ID,
		NewValues: map[string]interface{}{
			"citizen_id":       doc.CitizenID,
			"document_type_id": doc.DocumentTypeID,
			"original_name":    doc.OriginalName,
			"file_size":        doc.SizeBytes,
		},
	})
	return doc, nil
}

func sniffMatches(ext string, content []byte) bool {
	detected := http.DetectContentType(content)
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = detected[:i]
	}
	for _, ct := range contentTypes[ext] {
		if ct == detected {
			return true
		}
	}
	return false
}
