package activitylog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pwd-access/internal/common/database"
	"pwd-access/internal/models"
)

type Store interface {
	Insert(ctx context.Context, e *models.ActivityEntry) error
	CountActionSince(ctx context.Context, action, ipAddress string, since time.Time) (int, error)
	DeleteActionBefore(ctx context.Context, action string, before time.Time) (int64, error)
	ListForRecord(ctx context.Context, tableName string, recordID int64) ([]models.ActivityEntry, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func marshalValues(v map[string]interface{}) (interface{}, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *PostgresStore) Insert(ctx context.Context, e *models.ActivityEntry) error {
	oldValues, err := marshalValues(e.OldValues)
	if err != nil {
		return fmt.Errorf("encode old values: %w", err)
	}
	newValues, err := marshalValues(e.NewValues)
	if err != nil {
		return fmt.Errorf("encode new values: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activity_logs (user_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		database.NullInt64(e.UserID), e.Action, database.NullString(e.TableName), database.NullInt64(e.RecordID),
		oldValues, newValues, e.IPAddress, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountActionSince(ctx context.Context, action, ipAddress string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activity_logs
		WHERE action = $1 AND ip_address = $2 AND created_at > $3`,
		action, ipAddress, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s entries: %w", action, err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteActionBefore(ctx context.Context, action string, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM activity_logs WHERE action = $1 AND created_at < $2`, action, before)
	if err != nil {
		return 0, fmt.Errorf("purge %s entries: %w", action, err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) ListForRecord(ctx context.Context, tableName string, recordID int64) ([]models.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT log_id, user_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at
		FROM activity_logs
		WHERE table_name = $1 AND record_id = $2
		ORDER BY created_at ASC, log_id ASC`, tableName, recordID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []models.ActivityEntry
	for rows.Next() {
		var (
			e                    models.ActivityEntry
			userID, recID        sql.NullInt64
			table, ip, ua        sql.NullString
			oldValues, newValues []byte
		)
		if err := rows.Scan(&e.ID, &userID, &e.Action, &table, &recID, &oldValues, &newValues, &ip, &ua, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.UserID = database.Int64Ptr(userID)
		e.RecordID = database.Int64Ptr(recID)
		e.TableName, e.IPAddress, e.UserAgent = table.String, ip.String, ua.String
		if len(oldValues) > 0 {
			if err := json.Unmarshal(oldValues, &e.OldValues); err != nil {
				return nil, fmt.Errorf("decode old_values of activity %d: %w", e.ID, err)
			}
		}
		if len(newValues) > 0 {
			if err := json.Unmarshal(newValues, &e.NewValues); err != nil {
				return nil, fmt.Errorf("decode new_values of activity %d: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
