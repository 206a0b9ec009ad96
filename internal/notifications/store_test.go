package notifications

import (
	"context"
	"regexp"
	"testing"
	"time"

	"pwd-access/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	related := int64(42)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(int64(1), models.TypeNewApplication, "New Application Submitted", "msg",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "medium", created).
		WillReturnRows(sqlmock.NewRows([]string{"notification_id"}).AddRow(int64(7)))

	store := NewPostgresStore(db)
	id, err := store.Insert(context.Background(), &models.Notification{
		UserID: 1, Type: models.TypeNewApplication, Title: "New Application Submitted", Message: "msg",
		RelatedID: &related, RelatedType: "applications", Priority: models.NotificationMedium, CreatedAt: created,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"notification_id", "user_id", "type", "title", "message", "related_id", "related_type",
		"priority", "is_read", "read_at", "created_at",
	}).
		AddRow(int64(9), int64(5), "application_status", "t", "m", int64(42), "applications", "medium", false, nil, now).
		AddRow(int64(8), int64(5), "id_renewal", "t", "m", nil, nil, "high", true, now, now.Add(-time.Hour))

	mock.ExpectQuery("SELECT notification_id").WithArgs(int64(5), 50).WillReturnRows(rows)

	items, err := NewPostgresStore(db).ListByUser(context.Background(), 5, 50)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(42), *items[0].RelatedID)
	assert.Nil(t, items[0].ReadAt)
	assert.Nil(t, items[1].RelatedID)
	assert.Equal(t, models.NotificationHigh, items[1].Priority)
	assert.NotNil(t, items[1].ReadAt)
}

func TestPostgresStore_MarkRead_ForeignRowAffectsNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE notifications SET is_read").
		WithArgs(int64(3), int64(99), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := NewPostgresStore(db).MarkRead(context.Background(), 3, 99, time.Now())

	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestPostgresStore_InTx_Dedup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := DedupKey{Type: models.TypeIDRenewal, RelatedType: "citizen_records", RelatedID: 42}
	since := time.Date(2024, 2, 23, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("id_renewal:citizen_records:42").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("id_renewal", "citizen_records", int64(42), since).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	store := NewPostgresStore(db)
	var exists bool
	err = store.InTx(context.Background(), func(tx TxStore) error {
		if err := tx.LockKey(context.Background(), key); err != nil {
			return err
		}
		exists, err = tx.ExistsSince(context.Background(), key, since)
		return err
	})

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Contact_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT email, phone FROM users").
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}))

	_, err = NewPostgresStore(db).Contact(context.Background(), 12)
	assert.ErrorIs(t, err, ErrNoContact)
}
