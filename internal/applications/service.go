// Package applications owns the application lifecycle: submission, assignment,
// status transitions and the notification and audit side effects of each.
package applications

import (
	"context"
	"errors"
	"strings"
	"time"

	"pwd-access/internal/access"
	"pwd-access/internal/activitylog"
	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/metrics"
	"pwd-access/internal/common/observability"
	"pwd-access/internal/common/validation"
	"pwd-access/internal/models"
	"pwd-access/internal/notifications"
	"pwd-access/internal/reference"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tableName = "applications"

type ServiceLookup interface {
	Get(ctx context.Context, id int64) (*models.Service, error)
}

type Notifier interface {
	Notify(ctx context.Context, req notifications.Request)
}

type Auditor interface {
	Record(ctx context.Context, e activitylog.Entry)
	History(ctx context.Context, tableName string, recordID int64) ([]models.ActivityEntry, error)
}

type Settings struct {
	ReferencePrefix      string
	ReferenceMaxAttempts int
	SuperAdminUserID     int64
	DefaultPageSize      int
	MaxPageSize          int
	DueSoonDays          int
}

func (s *Settings) applyDefaults() {
	if s.ReferencePrefix == "" {
		s.ReferencePrefix = "APP"
	}
	if s.ReferenceMaxAttempts <= 0 {
		s.ReferenceMaxAttempts = 5
	}
	if s.SuperAdminUserID <= 0 {
		s.SuperAdminUserID = 1
	}
	if s.DefaultPageSize <= 0 {
		s.DefaultPageSize = 20
	}
	if s.MaxPageSize <= 0 {
		s.MaxPageSize = 50
	}
	if s.DueSoonDays <= 0 {
		s.DueSoonDays = 3
	}
}

type Service struct {
	store    Store
	services ServiceLookup
	notifier Notifier
	audit    Auditor
	refs     *reference.Generator
	settings Settings
	logger   logger.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithReferenceGenerator(g *reference.Generator) Option {
	return func(s *Service) { s.refs = g }
}

func NewService(store Store, services ServiceLookup, notifier Notifier, audit Auditor, settings Settings, log logger.Logger, opts ...Option) *Service {
	settings.applyDefaults()
	s := &Service{
		store:    store,
		services: services,
		notifier: notifier,
		audit:    audit,
		settings: settings,
		logger:   logger.Component(log, "applications"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.refs == nil {
		s.refs = reference.NewGenerator(reference.WithClock(s.now))
	}
	return s
}

type SubmitInput struct {
	CitizenID       int64
	ServiceID       int64
	ApplicationType string
	ApplicationData map[string]interface{}
	Priority        models.Priority
}

// Submit creates an application in status submitted. The citizen's
// verification is the caller's responsibility.
func (s *Service) Submit(ctx context.Context, actor models.Actor, in SubmitInput) (app *models.Application, err error) {
	ctx, span := observability.Tracer().Start(ctx, "applications.Submit",
		trace.WithAttributes(attribute.Int64("citizen.id", in.CitizenID), attribute.Int64("service.id", in.ServiceID)))
	defer func() { observability.EndSpan(span, err) }()
	defer s.observe("submit", time.Now(), &err)

	fields := map[string]string{}
	if in.CitizenID <= 0 {
		fields["citizen_id"] = "is required"
	}
	if in.ServiceID <= 0 {
		fields["service_id"] = "is required"
	}
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	} else if !in.Priority.Valid() {
		fields["priority"] = "must be one of low, normal, high, urgent"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields)
	}
	if strings.TrimSpace(in.ApplicationType) == "" {
		in.ApplicationType = "new"
	}

	svc, err := s.services.Get(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !svc.AcceptingOn(now) {
		return nil, apperrors.NewValidationError("service " + svc.Name + " is not accepting applications")
	}

	result, err := validation.ValidateDocument(svc.FormSchema, in.ApplicationData)
	if err != nil {
		return nil, apperrors.NewSystemError("validate application data", err)
	}
	if !result.Valid {
		return nil, apperrors.NewFieldValidationError(result.Fields())
	}

	app = &models.Application{
		CitizenID:       in.CitizenID,
		ServiceID:       in.ServiceID,
		ApplicationType: in.ApplicationType,
		Status:          models.StatusSubmitted,
		Priority:        in.Priority,
		SLADueDate:      reference.SLADueDate(now, svc.ProcessingTimeDays),
		SubmittedAt:     now.UTC(),
		ApplicationData: in.ApplicationData,
		ServiceName:     svc.Name,
		Sector:          svc.Sector,
	}

	if err := s.insertWithFreshReference(ctx, app, svc.Capacity); err != nil {
		return nil, err
	}

	metrics.ApplicationsSubmitted.WithLabelValues(svc.Sector).Inc()
	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId":   app.ID,
		"referenceNumber": app.ReferenceNumber,
		"serviceId":       app.ServiceID,
		"slaDueDate":      app.SLADueDate.Format("2006-01-02"),
	})

	s.audit.Record(ctx, activitylog.Entry{
		UserID:    userRef(actor),
		Action:    models.ActionSubmitApplication,
		TableName: tableName,
		RecordID:  &app.ID,
		NewValues: map[string]interface{}{
			"status":           string(app.Status),
			"reference_number": app.ReferenceNumber,
			"service_id":       app.ServiceID,
		},
	})
	s.notifier.Notify(ctx, notifications.Request{
		UserID:      s.settings.SuperAdminUserID,
		Type:        models.TypeNewApplication,
		Data:        map[string]interface{}{"referenceNumber": app.ReferenceNumber, "serviceName": svc.Name},
		RelatedID:   &app.ID,
		RelatedType: tableName,
	})

	return app, nil
}

func (s *Service) insertWithFreshReference(ctx context.Context, app *models.Application, capacity *int) error {
	for attempt := 1; attempt <= s.settings.ReferenceMaxAttempts; attempt++ {
		app.ReferenceNumber = s.refs.Generate(s.settings.ReferencePrefix)

		id, err := s.store.Create(ctx, app, capacity)
		switch {
		case err == nil:
			app.ID = id
			return nil
		case errors.Is(err, ErrDuplicateReference):
			s.logger.Debug("reference number collision", map[string]interface{}{
				"referenceNumber": app.ReferenceNumber,
				"attempt":         attempt,
			})
			continue
		case errors.Is(err, ErrCapacityReached):
			return apperrors.NewValidationError("service has reached its application capacity")
		case errors.Is(err, ErrUnknownCitizen):
			return apperrors.NewNotFoundError("citizen", app.CitizenID)
		case errors.Is(err, ErrUnknownService):
			return apperrors.NewNotFoundError("service", app.ServiceID)
		default:
			return apperrors.NewSystemError("create application", err)
		}
	}
	return apperrors.NewConflictError("could not allocate a unique reference number")
}

// Get loads an application the actor may view.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int64) (*models.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireView(actor, *app); err != nil {
		return nil, err
	}
	return app, nil
}

// Assign hands the application to a reviewer and moves a submitted
// application into review.
func (s *Service) Assign(ctx context.Context, actor models.Actor, id, assignee int64) (app *models.Application, err error) {
	ctx, span := observability.Tracer().Start(ctx, "applications.Assign",
		trace.WithAttributes(attribute.Int64("application.id", id), attribute.Int64("assignee.id", assignee)))
	defer func() { observability.EndSpan(span, err) }()
	defer s.observe("assign", time.Now(), &err)

	if assignee <= 0 {
		return nil, apperrors.NewFieldValidationError(map[string]string{"assigned_to": "must be a user id"})
	}

	app, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireReview(actor, *app); err != nil {
		return nil, err
	}
	if !assignable(app.Status) {
		return nil, apperrors.NewInvalidStateError(string(app.Status), string(models.StatusInReview))
	}

	from, prevAssignee := app.Status, app.AssignedTo
	at := s.now().UTC()
	ok, err := s.store.Assign(ctx, id, from, models.StatusInReview, assignee, at)
	if errors.Is(err, ErrUnknownAssignee) {
		return nil, apperrors.NewFieldValidationError(map[string]string{"assigned_to": "unknown user"})
	}
	if err != nil {
		return nil, apperrors.NewSystemError("assign application", err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("application changed while assigning")
	}

	app.Status = models.StatusInReview
	app.AssignedTo = &assignee
	if from != app.Status {
		metrics.ApplicationTransitions.WithLabelValues(string(from), string(app.Status)).Inc()
	}

	oldValues := map[string]interface{}{"status": string(from)}
	if prevAssignee != nil {
		oldValues["assigned_to"] = *prevAssignee
	}
	s.audit.Record(ctx, activitylog.Entry{
		UserID:    userRef(actor),
		Action:    models.ActionAssignApplication,
		TableName: tableName,
		RecordID:  &app.ID,
		OldValues: oldValues,
		NewValues: map[string]interface{}{"status": string(app.Status), "assigned_to": assignee},
	})
	if assignee != actor.UserID {
		s.notifier.Notify(ctx, notifications.Request{
			UserID:      assignee,
			Type:        models.TypeApplicationAssigned,
			Data:        map[string]interface{}{"referenceNumber": app.ReferenceNumber},
			RelatedID:   &app.ID,
			RelatedType: tableName,
		})
	}
	return app, nil
}

type StatusInput struct {
	Status          models.ApplicationStatus
	ReviewerNotes   *string
	RejectionReason *string
}

// UpdateStatus applies one legal transition and stamps reviewed_at or
// completed_at as appropriate.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id int64, in StatusInput) (app *models.Application, err error) {
	ctx, span := observability.Tracer().Start(ctx, "applications.UpdateStatus",
		trace.WithAttributes(attribute.Int64("application.id", id), attribute.String("status.to", string(in.Status))))
	defer func() { observability.EndSpan(span, err) }()
	defer s.observe("update_status", time.Now(), &err)

	if !in.Status.Valid() {
		return nil, apperrors.NewFieldValidationError(map[string]string{"status": "unknown status " + string(in.Status)})
	}

	app, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireReview(actor, *app); err != nil {
		return nil, err
	}
	if err := ValidateTransition(app.Status, in.Status); err != nil {
		return nil, err
	}

	from := app.Status
	at := s.now().UTC()
	ok, err := s.store.UpdateStatus(ctx, id, StatusChange{
		From:            from,
		To:              in.Status,
		ReviewerNotes:   in.ReviewerNotes,
		RejectionReason: in.RejectionReason,
		At:              at,
	})
	if err != nil {
		return nil, apperrors.NewSystemError("update application status", err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("application status changed concurrently")
	}

	app.Status = in.Status
	switch in.Status {
	case models.StatusApproved, models.StatusRejected:
		app.ReviewedAt = &at
	case models.StatusCompleted:
		app.CompletedAt = &at
	}
	if in.ReviewerNotes != nil {
		app.ReviewerNotes = *in.ReviewerNotes
	}
	if in.RejectionReason != nil {
		app.RejectionReason = *in.RejectionReason
	}
	metrics.ApplicationTransitions.WithLabelValues(string(from), string(in.Status)).Inc()

	newValues := map[string]interface{}{"status": string(in.Status)}
	if in.RejectionReason != nil {
		newValues["rejection_reason"] = *in.RejectionReason
	}
	s.audit.Record(ctx, activitylog.Entry{
		UserID:    userRef(actor),
		Action:    models.ActionUpdateApplication,
		TableName: tableName,
		RecordID:  &app.ID,
		OldValues: map[string]interface{}{"status": string(from)},
		NewValues: newValues,
	})

	if app.CitizenUserID == nil {
		s.logger.Info("citizen has no linked account, status notification skipped", map[string]interface{}{
			"applicationId": app.ID,
			"citizenId":     app.CitizenID,
		})
		return app, nil
	}
	s.notifier.Notify(ctx, notifications.Request{
		UserID: *app.CitizenUserID,
		Type:   models.TypeApplicationStatus,
		Data: map[string]interface{}{
			"referenceNumber": app.ReferenceNumber,
			"status":          statusLabel(in.Status),
		},
		RelatedID:   &app.ID,
		RelatedType: tableName,
	})
	return app, nil
}

// UpdateNotes edits reviewer notes or the rejection reason without a transition.
func (s *Service) UpdateNotes(ctx context.Context, actor models.Actor, id int64, notes, reason *string) (*models.Application, error) {
	if notes == nil && reason == nil {
		return nil, apperrors.NewValidationError("no valid fields to update")
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireReview(actor, *app); err != nil {
		return nil, err
	}
	if app.Status.Terminal() {
		return nil, apperrors.NewInvalidStateError(string(app.Status), "notes update")
	}

	ok, err := s.store.UpdateNotes(ctx, id, app.Status, notes, reason, s.now().UTC())
	if err != nil {
		return nil, apperrors.NewSystemError("update reviewer notes", err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("application status changed concurrently")
	}

	newValues := map[string]interface{}{}
	if notes != nil {
		app.ReviewerNotes = *notes
		newValues["reviewer_notes"] = *notes
	}
	if reason != nil {
		app.RejectionReason = *reason
		newValues["rejection_reason"] = *reason
	}
	s.audit.Record(ctx, activitylog.Entry{
		UserID:    userRef(actor),
		Action:    models.ActionUpdateReviewerNotes,
		TableName: tableName,
		RecordID:  &app.ID,
		NewValues: newValues,
	})
	return app, nil
}

type UpdateInput struct {
	Status          *models.ApplicationStatus
	AssignedTo      *int64
	ReviewerNotes   *string
	RejectionReason *string
}

// Update applies a combined edit: assignment first, then a status change or,
// failing that, a notes-only edit. The whole request is checked against the
// stored status before anything is written.
func (s *Service) Update(ctx context.Context, actor models.Actor, id int64, in UpdateInput) (*models.Application, error) {
	if in.Status == nil && in.AssignedTo == nil && in.ReviewerNotes == nil && in.RejectionReason == nil {
		return nil, apperrors.NewValidationError("no valid fields to update")
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireReview(actor, *app); err != nil {
		return nil, err
	}
	if err := validateUpdate(*app, in); err != nil {
		return nil, err
	}

	var assigned *models.Application
	if in.AssignedTo != nil {
		if assigned, err = s.Assign(ctx, actor, id, *in.AssignedTo); err != nil {
			return nil, err
		}
	}

	if in.Status != nil && (assigned == nil || assigned.Status != *in.Status) {
		return s.UpdateStatus(ctx, actor, id, StatusInput{
			Status:          *in.Status,
			ReviewerNotes:   in.ReviewerNotes,
			RejectionReason: in.RejectionReason,
		})
	}
	if in.ReviewerNotes != nil || in.RejectionReason != nil {
		return s.UpdateNotes(ctx, actor, id, in.ReviewerNotes, in.RejectionReason)
	}
	return assigned, nil
}

// validateUpdate rejects a combined edit whose parts cannot all succeed from
// the application's current status.
func validateUpdate(app models.Application, in UpdateInput) error {
	effective := app.Status
	if in.AssignedTo != nil {
		if *in.AssignedTo <= 0 {
			return apperrors.NewFieldValidationError(map[string]string{"assigned_to": "must be a user id"})
		}
		if !assignable(app.Status) {
			return apperrors.NewInvalidStateError(string(app.Status), string(models.StatusInReview))
		}
		effective = models.StatusInReview
	}
	if in.Status != nil && *in.Status != effective {
		if !in.Status.Valid() {
			return apperrors.NewFieldValidationError(map[string]string{"status": "unknown status " + string(*in.Status)})
		}
		if !CanTransition(effective, *in.Status) {
			return apperrors.NewInvalidStateError(string(app.Status), string(*in.Status))
		}
		return nil
	}
	if (in.ReviewerNotes != nil || in.RejectionReason != nil) && effective.Terminal() {
		return apperrors.NewInvalidStateError(string(effective), "notes update")
	}
	return nil
}

// ListForActor returns one page of the applications visible to actor, newest first.
func (s *Service) ListForActor(ctx context.Context, actor models.Actor, f models.ApplicationFilter) (*models.ApplicationPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.NewFieldValidationError(map[string]string{"status": "unknown status " + string(f.Status)})
	}
	if f.Sector != "" && !models.ValidSector(f.Sector) {
		return nil, apperrors.NewFieldValidationError(map[string]string{"sector": "unknown sector " + f.Sector})
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return nil, apperrors.NewFieldValidationError(map[string]string{"dateTo": "must not be before dateFrom"})
	}

	scoped, err := access.ScopeQuery(actor, f)
	if err != nil {
		return nil, err
	}
	if scoped.Page < 1 {
		scoped.Page = 1
	}
	if scoped.Limit <= 0 {
		scoped.Limit = s.settings.DefaultPageSize
	}
	if scoped.Limit > s.settings.MaxPageSize {
		scoped.Limit = s.settings.MaxPageSize
	}

	items, total, err := s.store.List(ctx, scoped)
	if err != nil {
		return nil, apperrors.NewSystemError("list applications", err)
	}
	return &models.ApplicationPage{Items: items, Total: total, Page: scoped.Page, Limit: scoped.Limit}, nil
}

// Summary reports workload counts over the actor's scope.
func (s *Service) Summary(ctx context.Context, actor models.Actor) (*models.ApplicationSummary, error) {
	scoped, err := access.ScopeQuery(actor, models.ApplicationFilter{})
	if err != nil {
		return nil, err
	}
	today := reference.CalendarDate(s.now())
	sum, err := s.store.Summary(ctx, scoped, actor.UserID, today, today.AddDate(0, 0, s.settings.DueSoonDays))
	if err != nil {
		return nil, apperrors.NewSystemError("application summary", err)
	}
	return sum, nil
}

// History returns the audit trail of an application the actor may view.
func (s *Service) History(ctx context.Context, actor models.Actor, id int64) ([]models.ActivityEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.audit.History(ctx, tableName, id)
}

func (s *Service) load(ctx context.Context, id int64) (*models.Application, error) {
	app, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	if err != nil {
		return nil, apperrors.NewSystemError("load application", err)
	}
	return app, nil
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if *errp != nil {
		code := string(apperrors.Normalize(*errp).Code)
		metrics.OperationsFailed.WithLabelValues(op, code).Inc()
	}
}

func userRef(actor models.Actor) *int64 {
	if actor.UserID <= 0 {
		return nil
	}
	id := actor.UserID
	return &id
}
