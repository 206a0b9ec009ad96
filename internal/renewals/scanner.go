// Package renewals finds issued PWD IDs nearing expiry and notifies the
// citizen and the office, at most once per citizen per de-dup window.
package renewals

import (
	"context"
	"time"

	"pwd-access/internal/activitylog"
	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/metrics"
	"pwd-access/internal/common/observability"
	"pwd-access/internal/models"
	"pwd-access/internal/notifications"
	"pwd-access/internal/reference"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultWindowDays = 30
	DefaultDedupeDays = 7

	relatedType = "citizen_records"
)

// OnceNotifier inserts a group of notifications unless one for key exists since the cutoff.
type OnceNotifier interface {
	NotifyOnce(ctx context.Context, key notifications.DedupKey, since time.Time, reqs ...notifications.Request) (bool, error)
}

type Recorder interface {
	Record(ctx context.Context, e activitylog.Entry)
}

type Result struct {
	DueCount          int                       `json:"dueCount"`
	NotificationsSent int                       `json:"notificationsSent"`
	DueList           []models.RenewalCandidate `json:"dueList"`
}

type Scanner struct {
	store        Store
	notifier     OnceNotifier
	audit        Recorder
	superAdminID int64
	dedupe       time.Duration
	logger       logger.Logger
	now          func() time.Time
}

type Option func(*Scanner)

func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

func WithDedupeDays(days int) Option {
	return func(s *Scanner) {
		if days > 0 {
			s.dedupe = time.Duration(days) * 24 * time.Hour
		}
	}
}

func NewScanner(store Store, notifier OnceNotifier, audit Recorder, superAdminID int64, log logger.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		store:        store,
		notifier:     notifier,
		audit:        audit,
		superAdminID: superAdminID,
		dedupe:       DefaultDedupeDays * 24 * time.Hour,
		logger:       logger.Component(log, "renewals"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan notifies for every issued ID expiring within windowDays. Re-running it
// inside the de-dup window sends nothing new.
func (s *Scanner) Scan(ctx context.Context, windowDays int) (res *Result, err error) {
	ctx, span := observability.Tracer().Start(ctx, "renewals.Scan")
	defer func() { observability.EndSpan(span, err) }()

	if windowDays < 0 {
		return nil, apperrors.NewValidationError("windowDays must not be negative")
	}
	if windowDays == 0 {
		windowDays = DefaultWindowDays
	}

	now := s.now()
	today := reference.CalendarDate(now)
	candidates, err := s.store.Candidates(ctx, today, today.AddDate(0, 0, windowDays))
	if err != nil {
		return nil, apperrors.NewSystemError("load renewal candidates", err)
	}

	res = &Result{DueCount: len(candidates), DueList: candidates}
	since := now.Add(-s.dedupe)
	for _, c := range candidates {
		sent, err := s.notifier.NotifyOnce(ctx, keyFor(c), since, s.requests(c)...)
		if err != nil {
			s.logger.Warn("renewal notification failed", map[string]interface{}{
				"citizenId": c.CitizenID,
				"error":     err,
			})
			continue
		}
		if sent {
			res.NotificationsSent++
		}
	}

	span.SetAttributes(
		attribute.Int("renewals.due", res.DueCount),
		attribute.Int("renewals.sent", res.NotificationsSent),
	)
	metrics.RenewalsDue.Set(float64(res.DueCount))
	s.logger.Info("renewal scan finished", map[string]interface{}{
		"windowDays":        windowDays,
		"dueCount":          res.DueCount,
		"notificationsSent": res.NotificationsSent,
	})
	s.audit.Record(ctx, activitylog.Entry{
		Action:    models.ActionRenewalScan,
		TableName: relatedType,
		NewValues: map[string]interface{}{
			"window_days":        windowDays,
			"due_count":          res.DueCount,
			"notifications_sent": res.NotificationsSent,
		},
	})
	return res, nil
}

func keyFor(c models.RenewalCandidate) notifications.DedupKey {
	return notifications.DedupKey{Type: models.TypeIDRenewal, RelatedType: relatedType, RelatedID: c.CitizenID}
}

func (s *Scanner) requests(c models.RenewalCandidate) []notifications.Request {
	id := c.CitizenID
	data := map[string]interface{}{
		"daysUntilExpiry": c.DaysUntilExpiry,
		"fullName":        c.FullName,
		"pwdIdNumber":     c.PwdIDNumber,
	}

	reqs := make([]notifications.Request, 0, 2)
	if c.UserID != nil {
		reqs = append(reqs, notifications.Request{
			UserID:      *c.UserID,
			Type:        models.TypeIDRenewal,
			Template:    notifications.TemplateRenewalCitizen,
			Data:        data,
			RelatedID:   &id,
			RelatedType: relatedType,
			Priority:    models.NotificationHigh,
		})
	}
	reqs = append(reqs, notifications.Request{
		UserID:      s.superAdminID,
		Type:        models.TypeIDRenewal,
		Template:    notifications.TemplateRenewalStaff,
		Data:        data,
		RelatedID:   &id,
		RelatedType: relatedType,
		Priority:    models.NotificationMedium,
	})
	return reqs
}
