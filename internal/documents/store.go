package documents

import (
	"context"
	"database/sql"
	"fmt"

	"pwd-access/internal/common/database"
	"pwd-access/internal/models"
)

type Store interface {
	Insert(ctx context.Context, d *models.Document) (int64, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, d *models.Document) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO citizen_documents (citizen_id, document_type_id, application_id, original_name, file_path, file_size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING document_id`,
		d.CitizenID, d.DocumentTypeID, database.NullInt64(d.ApplicationID), d.OriginalName, d.StoredRef, d.SizeBytes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}
