// Package citizens holds the super-admin mutations of a citizen record:
// verification and PWD ID issuance.
package citizens

import (
	"context"
	"errors"
	"strings"
	"time"

	"pwd-access/internal/access"
	"pwd-access/internal/activitylog"
	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/models"
	"pwd-access/internal/notifications"
)

const tableName = "citizen_records"

type Notifier interface {
	Notify(ctx context.Context, req notifications.Request)
}

type Recorder interface {
	Record(ctx context.Context, e activitylog.Entry)
}

type Service struct {
	store    Store
	notifier Notifier
	audit    Recorder
	logger   logger.Logger
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, audit Recorder, log logger.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		audit:    audit,
		logger:   logger.Component(log, "citizens"),
		now:      time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Get(ctx context.Context, actor models.Actor, id int64) (*models.Citizen, error) {
	switch r := actor.Role.(type) {
	case models.SuperAdmin, models.SectorAdmin:
	case models.CitizenRole:
		if r.CitizenID != id {
			return nil, apperrors.NewForbiddenError("citizen record is outside your scope")
		}
	default:
		return nil, apperrors.NewUnauthorizedError("unknown role")
	}
	return s.load(ctx, id)
}

// SetVerification records the verification decision and tells the linked user.
func (s *Service) SetVerification(ctx context.Context, actor models.Actor, id int64, status models.VerificationStatus) (*models.Citizen, error) {
	if err := access.RequireSuperAdmin(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewFieldValidationError(map[string]string{"status": "must be pending, verified or rejected"})
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	old := c.VerificationStatus

	ok, err := s.store.SetVerification(ctx, id, status, s.now().UTC())
	if err != nil {
		return nil, apperrors.NewSystemError("set verification", err)
	}
	if !ok {
		return nil, apperrors.NewNotFoundError("citizen", id)
	}
	c.VerificationStatus = status

	s.audit.Record(ctx, activitylog.Entry{
		UserID:    &actor.UserID,
		Action:    models.ActionVerifyCitizen,
		TableName: tableName,
		RecordID:  &c.ID,
		OldValues: map[string]interface{}{"verification_status": string(old)},
		NewValues: map[string]interface{}{"verification_status": string(status)},
	})
	s.notifyLinked(ctx, c, models.TypeVerification, map[string]interface{}{"status": string(status)})
	return c, nil
}

// IssuePwdID stores the ID number and expiry and marks the ID issued.
func (s *Service) IssuePwdID(ctx context.Context, actor models.Actor, id int64, number string, expiry time.Time) (*models.Citizen, error) {
	if err := access.RequireSuperAdmin(actor); err != nil {
		return nil, err
	}
	number = strings.TrimSpace(number)
	fields := map[string]string{}
	if number == "" {
		fields["pwdIdNumber"] = "is required"
	}
	if expiry.IsZero() {
		fields["expiryDate"] = "is required"
	} else if !expiry.After(s.now()) {
		fields["expiryDate"] = "must be in the future"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields)
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.VerificationStatus != models.VerificationVerified {
		return nil, apperrors.NewInvalidStateError(string(c.VerificationStatus), "pwd id issuance")
	}
	oldStatus := c.PwdIDStatus

	ok, err := s.store.IssuePwdID(ctx, id, number, expiry, s.now().UTC())
	if errors.Is(err, ErrDuplicatePwdID) {
		return nil, apperrors.NewConflictError("pwd id number " + number + " is already in use")
	}
	if err != nil {
		return nil, apperrors.NewSystemError("issue pwd id", err)
	}
	if !ok {
		return nil, apperrors.NewNotFoundError("citizen", id)
	}
	c.PwdIDNumber = number
	c.PwdIDStatus = models.PwdIDIssued
	c.PwdIDExpiry = &expiry

	s.audit.Record(ctx, activitylog.Entry{
		UserID:    &actor.UserID,
		Action:    models.ActionIssuePwdID,
		TableName: tableName,
		RecordID:  &c.ID,
		OldValues: map[string]interface{}{"pwd_id_status": string(oldStatus)},
		NewValues: map[string]interface{}{
			"pwd_id_status":      string(models.PwdIDIssued),
			"pwd_id_number":      number,
			"pwd_id_expiry_date": expiry.Format("2006-01-02"),
		},
	})
	s.notifyLinked(ctx, c, models.TypePwdIDIssued, map[string]interface{}{
		"pwdIdNumber": number,
		"expiryDate":  expiry.Format("2006-01-02"),
	})
	return c, nil
}

func (s *Service) notifyLinked(ctx context.Context, c *models.Citizen, typ string, data map[string]interface{}) {
	if c.UserID == nil {
		s.logger.Info("citizen has no linked account, notification skipped", map[string]interface{}{
			"citizenId": c.ID,
			"type":      typ,
		})
		return
	}
	s.notifier.Notify(ctx, notifications.Request{
		UserID:      *c.UserID,
		Type:        typ,
		Data:        data,
		RelatedID:   &c.ID,
		RelatedType: tableName,
		Priority:    models.NotificationHigh,
	})
}

func (s *Service) load(ctx context.Context, id int64) (*models.Citizen, error) {
	c, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewNotFoundError("citizen", id)
	}
	if err != nil {
		return nil, apperrors.NewSystemError("load citizen", err)
	}
	return c, nil
}
