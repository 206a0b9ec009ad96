package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE applications SET status = 'in_review'")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	called := false
	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
}

func TestPgErrorHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	serial := &pq.Error{Code: "40001"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(serial))
	assert.True(t, IsRetryable(serial))
	assert.Equal(t, "", PgErrorCode(errors.New("plain")))
}

func TestForeignKeyHelpers(t *testing.T) {
	fk := fmt.Errorf("insert: %w", &pq.Error{Code: "23503", Constraint: "applications_citizen_id_fkey"})

	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))
	assert.Equal(t, "applications_citizen_id_fkey", PgConstraint(fk))
	assert.False(t, IsForeignKeyViolation(errors.New("plain")))
	assert.Equal(t, "", PgConstraint(errors.New("plain")))
}

func TestNullHelpers(t *testing.T) {
	id := int64(7)
	assert.Equal(t, sql.NullInt64{Int64: 7, Valid: true}, NullInt64(&id))
	assert.False(t, NullInt64(nil).Valid)
	assert.False(t, NullString("").Valid)
	assert.Nil(t, Int64Ptr(sql.NullInt64{}))
	assert.Equal(t, int64(3), *Int64Ptr(sql.NullInt64{Int64: 3, Valid: true}))
}
