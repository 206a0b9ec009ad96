// Package activitylog is the append-only audit trail of state-changing actions.
package activitylog

import (
	"context"
	"time"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/metrics"
	"pwd-access/internal/common/requestctx"
	"pwd-access/internal/models"
)

const unknown = "unknown"

// Entry is one audited action. UserID is nil for anonymous events.
type Entry struct {
	UserID    *int64
	Action    string
	TableName string
	RecordID  *int64
	OldValues map[string]interface{}
	NewValues map[string]interface{}
}

type Log struct {
	store  Store
	logger logger.Logger
	now    func() time.Time
}

func New(store Store, log logger.Logger) *Log {
	return &Log{store: store, logger: logger.Component(log, "activitylog"), now: time.Now}
}

// WithClock replaces the time source.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// Record appends an entry with the caller's IP and user agent. It never fails;
// storage errors are logged.
func (l *Log) Record(ctx context.Context, e Entry) {
	meta := requestctx.MetaFrom(ctx)
	entry := &models.ActivityEntry{
		UserID:    e.UserID,
		Action:    e.Action,
		TableName: e.TableName,
		RecordID:  e.RecordID,
		OldValues: e.OldValues,
		NewValues: e.NewValues,
		IPAddress: orUnknown(meta.ClientIP),
		UserAgent: orUnknown(meta.UserAgent),
		CreatedAt: l.now().UTC(),
	}
	if err := l.store.Insert(ctx, entry); err != nil {
		metrics.SideEffectFailures.WithLabelValues("activity_log").Inc()
		l.logger.Error("activity log write failed", map[string]interface{}{
			"action":    e.Action,
			"table":     e.TableName,
			"requestId": meta.RequestID,
			"error":     err,
		})
	}
}

// RecordFailedLogin audits a rejected sign-in from the request's client address.
func (l *Log) RecordFailedLogin(ctx context.Context, username string) {
	l.Record(ctx, Entry{
		Action:    models.ActionFailedLogin,
		TableName: "security_events",
		NewValues: map[string]interface{}{"username": username},
	})
}

// CountRecentFailedLogins counts failed sign-ins from identifier (a client IP)
// in the last windowSeconds.
func (l *Log) CountRecentFailedLogins(ctx context.Context, identifier string, windowSeconds int) (int, error) {
	since := l.now().UTC().Add(-time.Duration(windowSeconds) * time.Second)
	n, err := l.store.CountActionSince(ctx, models.ActionFailedLogin, identifier, since)
	if err != nil {
		return 0, apperrors.NewSystemError("count failed logins", err)
	}
	return n, nil
}

// PurgeFailedLogins removes failed-login entries older than retention.
func (l *Log) PurgeFailedLogins(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := l.store.DeleteActionBefore(ctx, models.ActionFailedLogin, l.now().UTC().Add(-retention))
	if err != nil {
		return 0, apperrors.NewSystemError("purge failed logins", err)
	}
	if n > 0 {
		l.logger.Info("purged failed login entries", map[string]interface{}{"deleted": n})
	}
	return n, nil
}

// History lists the audit trail of one record, oldest first.
func (l *Log) History(ctx context.Context, tableName string, recordID int64) ([]models.ActivityEntry, error) {
	items, err := l.store.ListForRecord(ctx, tableName, recordID)
	if err != nil {
		return nil, apperrors.NewSystemError("load activity history", err)
	}
	if items == nil {
		items = []models.ActivityEntry{}
	}
	return items, nil
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
