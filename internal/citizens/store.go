package citizens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pwd-access/internal/common/database"
	"pwd-access/internal/models"
)

var (
	ErrNotFound       = errors.New("citizen record not found")
	ErrDuplicatePwdID = errors.New("pwd id number already issued")
)

type Store interface {
	Get(ctx context.Context, id int64) (*models.Citizen, error)
	SetVerification(ctx context.Context, id int64, status models.VerificationStatus, at time.Time) (bool, error)
	IssuePwdID(ctx context.Context, id int64, number string, expiry, at time.Time) (bool, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.Citizen, error) {
	var (
		c                     models.Citizen
		userID                sql.NullInt64
		disability, pwdNumber sql.NullString
		pwdStatus, verified   string
		expiry                sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT citizen_id, user_id, first_name, last_name, disability_type,
		       pwd_id_number, pwd_id_status, pwd_id_expiry_date, verification_status
		FROM citizen_records WHERE citizen_id = $1`, id).
		Scan(&c.ID, &userID, &c.FirstName, &c.LastName, &disability,
			&pwdNumber, &pwdStatus, &expiry, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load citizen %d: %w", id, err)
	}
	c.UserID = database.Int64Ptr(userID)
	c.DisabilityType = disability.String
	c.PwdIDNumber = pwdNumber.String
	c.PwdIDStatus = models.PwdIDStatus(pwdStatus)
	c.PwdIDExpiry = database.TimePtr(expiry)
	c.VerificationStatus = models.VerificationStatus(verified)
	return &c, nil
}

func (s *PostgresStore) SetVerification(ctx context.Context, id int64, status models.VerificationStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE citizen_records SET verification_status = $2, updated_at = $3 WHERE citizen_id = $1`,
		id, string(status), at)
	if err != nil {
		return false, fmt.Errorf("set verification: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresStore) IssuePwdID(ctx context.Context, id int64, number string, expiry, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE citizen_records
		SET pwd_id_number = $2, pwd_id_status = 'issued', pwd_id_expiry_date = $3, updated_at = $4
		WHERE citizen_id = $1`,
		id, number, expiry, at)
	if database.IsUniqueViolation(err) {
		return false, ErrDuplicatePwdID
	}
	if err != nil {
		return false, fmt.Errorf("issue pwd id: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
