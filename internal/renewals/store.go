package renewals

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pwd-access/internal/common/database"
	"pwd-access/internal/models"
	"pwd-access/internal/reference"
)

type Store interface {
	// Candidates lists issued PWD IDs expiring between the calendar dates of
	// from and to, inclusive.
	Candidates(ctx context.Context, from, to time.Time) ([]models.RenewalCandidate, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Candidates(ctx context.Context, from, to time.Time) ([]models.RenewalCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT citizen_id, user_id, first_name || ' ' || last_name, COALESCE(pwd_id_number, ''), pwd_id_expiry_date
		FROM citizen_records
		WHERE pwd_id_status = 'issued'
		  AND pwd_id_expiry_date IS NOT NULL
		  AND pwd_id_expiry_date BETWEEN $1::date AND $2::date
		ORDER BY pwd_id_expiry_date, citizen_id`,
		reference.DateParam(from), reference.DateParam(to))
	if err != nil {
		return nil, fmt.Errorf("query renewal candidates: %w", err)
	}
	defer rows.Close()

	out := []models.RenewalCandidate{}
	for rows.Next() {
		var (
			c      models.RenewalCandidate
			userID sql.NullInt64
		)
		if err := rows.Scan(&c.CitizenID, &userID, &c.FullName, &c.PwdIDNumber, &c.ExpiryDate); err != nil {
			return nil, fmt.Errorf("scan renewal candidate: %w", err)
		}
		c.UserID = database.Int64Ptr(userID)
		c.DaysUntilExpiry = reference.DaysBetween(from, c.ExpiryDate)
		out = append(out, c)
	}
	return out, rows.Err()
}
