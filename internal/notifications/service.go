// Package notifications persists per-user notifications raised by workflow events.
package notifications

import (
	"context"
	"errors"
	"time"

	"pwd-access/internal/common/database"
	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/metrics"
	"pwd-access/internal/models"
)

const DefaultListLimit = 50

// Request describes one notification. Title and Message are rendered from
// Template (or Type) when left empty.
type Request struct {
	UserID      int64
	Type        string
	Template    string
	Data        map[string]interface{}
	Title       string
	Message     string
	RelatedID   *int64
	RelatedType string
	Priority    models.NotificationPriority
}

type Service struct {
	store     Store
	relay     Relay
	logger    logger.Logger
	now       func() time.Time
	listLimit int
}

type Option func(*Service)

func WithRelay(r Relay) Option {
	return func(s *Service) { s.relay = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithListLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.listLimit = n
		}
	}
}

func NewService(store Store, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    logger.Component(log, "notifications"),
		now:       time.Now,
		listLimit: DefaultListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) build(req Request) (*models.Notification, error) {
	if req.UserID <= 0 {
		return nil, apperrors.NewValidationError("notification user_id is required")
	}
	if req.Type == "" {
		return nil, apperrors.NewValidationError("notification type is required")
	}

	title, message := req.Title, req.Message
	if title == "" || message == "" {
		key := req.Template
		if key == "" {
			key = req.Type
		}
		t, m, ok := Render(key, req.Data)
		if !ok {
			return nil, apperrors.NewValidationError("no template for notification " + key)
		}
		if title == "" {
			title = t
		}
		if message == "" {
			message = m
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = models.NotificationMedium
	}

	return &models.Notification{
		UserID:      req.UserID,
		Type:        req.Type,
		Title:       title,
		Message:     message,
		RelatedID:   req.RelatedID,
		RelatedType: req.RelatedType,
		Priority:    priority,
		CreatedAt:   s.now().UTC(),
	}, nil
}

// Create persists a notification and relays it out of band when configured.
func (s *Service) Create(ctx context.Context, req Request) (*models.Notification, error) {
	n, err := s.build(req)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Insert(ctx, n)
	if err != nil {
		return nil, apperrors.NewSystemError("create notification", err)
	}
	n.ID = id
	metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()

	s.deliver(ctx, *n)
	return n, nil
}

// Notify is the best-effort form of Create. Failures are logged and never
// reach the caller.
func (s *Service) Notify(ctx context.Context, req Request) {
	if _, err := s.Create(ctx, req); err != nil {
		metrics.SideEffectFailures.WithLabelValues("notification").Inc()
		s.logger.Warn("notification not created", map[string]interface{}{
			"userId": req.UserID,
			"type":   req.Type,
			"error":  err,
		})
	}
}

// NotifyOnce inserts reqs in one transaction unless a notification for key was
// created after since. It reports whether anything was inserted.
func (s *Service) NotifyOnce(ctx context.Context, key DedupKey, since time.Time, reqs ...Request) (bool, error) {
	built := make([]*models.Notification, 0, len(reqs))
	for _, req := range reqs {
		n, err := s.build(req)
		if err != nil {
			return false, err
		}
		built = append(built, n)
	}
	if len(built) == 0 {
		return false, nil
	}

	sent := false
	err := s.store.InTx(ctx, func(tx TxStore) error {
		if err := tx.LockKey(ctx, key); err != nil {
			return err
		}
		exists, err := tx.ExistsSince(ctx, key, since)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		for _, n := range built {
			id, err := tx.Insert(ctx, n)
			if err != nil {
				return err
			}
			n.ID = id
		}
		sent = true
		return nil
	})
	if err != nil {
		if database.IsRetryable(err) {
			return false, apperrors.NewConflictError("deduplicated notification raced another writer")
		}
		return false, apperrors.NewSystemError("create deduplicated notification", err)
	}

	if sent {
		for _, n := range built {
			metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()
			s.deliver(ctx, *n)
		}
	}
	return sent, nil
}

func (s *Service) deliver(ctx context.Context, n models.Notification) {
	if s.relay == nil {
		return
	}
	contact, err := s.store.Contact(ctx, n.UserID)
	if err != nil {
		if !errors.Is(err, ErrNoContact) {
			s.logger.Warn("relay contact lookup failed", map[string]interface{}{
				"userId": n.UserID,
				"error":  err,
			})
		}
		return
	}
	if err := s.relay.Deliver(ctx, n, contact); err != nil {
		metrics.SideEffectFailures.WithLabelValues("relay").Inc()
		s.logger.Warn("notification relay failed", map[string]interface{}{
			"notificationId": n.ID,
			"userId":         n.UserID,
			"error":          err,
		})
	}
}

// List returns the user's notifications newest first.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}
	items, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewSystemError("list notifications", err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead marks one of the user's notifications read. Unknown ids and ids
// owned by another user are reported as not found.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	affected, err := s.store.MarkRead(ctx, id, userID, s.now().UTC())
	if err != nil {
		return apperrors.NewSystemError("mark notification read", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("notification", id)
	}
	return nil
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperrors.NewSystemError("count unread notifications", err)
	}
	return n, nil
}
