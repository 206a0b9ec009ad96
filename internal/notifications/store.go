package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pwd-access/internal/common/database"
	"pwd-access/internal/models"
)

// DedupKey identifies the subject of a notification for de-duplication.
type DedupKey struct {
	Type        string
	RelatedType string
	RelatedID   int64
}

func (k DedupKey) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Type, k.RelatedType, k.RelatedID)
}

// TxStore is the subset of Store available inside a transaction.
type TxStore interface {
	LockKey(ctx context.Context, key DedupKey) error
	ExistsSince(ctx context.Context, key DedupKey, since time.Time) (bool, error)
	Insert(ctx context.Context, n *models.Notification) (int64, error)
}

type Store interface {
	Insert(ctx context.Context, n *models.Notification) (int64, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	Contact(ctx context.Context, userID int64) (models.Contact, error)
	InTx(ctx context.Context, fn func(tx TxStore) error) error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertNotification = `
	INSERT INTO notifications (user_id, type, title, message, related_id, related_type, priority, is_read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
	RETURNING notification_id`

func insert(ctx context.Context, q database.Querier, n *models.Notification) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, insertNotification,
		n.UserID, n.Type, n.Title, n.Message,
		database.NullInt64(n.RelatedID), database.NullString(n.RelatedType),
		string(n.Priority), n.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Insert(ctx context.Context, n *models.Notification) (int64, error) {
	return insert(ctx, s.db, n)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT notification_id, user_id, type, title, message, related_id, related_type,
		       priority, is_read, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, notification_id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var (
			n           models.Notification
			relatedID   sql.NullInt64
			relatedType sql.NullString
			priority    string
			readAt      sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &relatedID, &relatedType,
			&priority, &n.IsRead, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.RelatedID = database.Int64Ptr(relatedID)
		n.RelatedType = relatedType.String
		n.Priority = models.NotificationPriority(priority)
		n.ReadAt = database.TimePtr(readAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, id, userID int64, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE notification_id = $1 AND user_id = $2`, id, userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// ErrNoContact is returned when the user has no delivery details on file.
var ErrNoContact = errors.New("no contact details")

func (s *PostgresStore) Contact(ctx context.Context, userID int64) (models.Contact, error) {
	var email, phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT email, phone FROM users WHERE user_id = $1`, userID).Scan(&email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, ErrNoContact
	}
	if err != nil {
		return models.Contact{}, fmt.Errorf("load contact: %w", err)
	}
	return models.Contact{Email: email.String, Phone: phone.String}, nil
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&pgTxStore{tx: tx})
	})
}

type pgTxStore struct {
	tx *sql.Tx
}

// LockKey serializes concurrent check-and-insert on the same subject until commit.
func (t *pgTxStore) LockKey(ctx context.Context, key DedupKey) error {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	return nil
}

func (t *pgTxStore) ExistsSince(ctx context.Context, key DedupKey, since time.Time) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE type = $1 AND related_type = $2 AND related_id = $3 AND created_at > $4
		)`, key.Type, key.RelatedType, key.RelatedID, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent %s: %w", key, err)
	}
	return exists, nil
}

func (t *pgTxStore) Insert(ctx context.Context, n *models.Notification) (int64, error) {
	return insert(ctx, t.tx, n)
}
