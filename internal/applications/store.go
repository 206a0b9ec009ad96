package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pwd-access/internal/common/database"
	"pwd-access/internal/models"
	"pwd-access/internal/reference"
)

var (
	ErrNotFound           = errors.New("application not found")
	ErrDuplicateReference = errors.New("reference number already taken")
	ErrCapacityReached    = errors.New("service capacity reached")
	ErrUnknownCitizen     = errors.New("citizen record does not exist")
	ErrUnknownService     = errors.New("service does not exist")
	ErrUnknownAssignee    = errors.New("assignee does not exist")
)

// StatusChange carries the columns written alongside a status transition.
type StatusChange struct {
	From            models.ApplicationStatus
	To              models.ApplicationStatus
	ReviewerNotes   *string
	RejectionReason *string
	At              time.Time
}

type Store interface {
	// Create inserts app. With a non-nil capacity the insert fails with
	// ErrCapacityReached once that many non-rejected applications exist.
	// A missing citizen or service yields ErrUnknownCitizen or ErrUnknownService.
	Create(ctx context.Context, app *models.Application, capacity *int) (int64, error)
	Get(ctx context.Context, id int64) (*models.Application, error)
	List(ctx context.Context, f models.ApplicationFilter) ([]models.Application, int, error)
	// The update methods only apply while the row still has the expected
	// status and report whether a row changed.
	UpdateStatus(ctx context.Context, id int64, ch StatusChange) (bool, error)
	// Assign fails with ErrUnknownAssignee when no such user exists.
	Assign(ctx context.Context, id int64, from, to models.ApplicationStatus, assignee int64, at time.Time) (bool, error)
	UpdateNotes(ctx context.Context, id int64, status models.ApplicationStatus, notes, reason *string, at time.Time) (bool, error)
	Summary(ctx context.Context, f models.ApplicationFilter, userID int64, today, dueBy time.Time) (*models.ApplicationSummary, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectApplication = `
	SELECT a.application_id, a.reference_number, a.citizen_id, a.service_id, a.application_type,
	       a.status, a.priority, a.sla_due_date, a.assigned_to, a.submitted_at, a.reviewed_at,
	       a.completed_at, COALESCE(a.reviewer_notes, ''), COALESCE(a.rejection_reason, ''),
	       a.application_data, s.service_name, sec.sector_name,
	       c.first_name || ' ' || c.last_name, c.user_id
	FROM applications a
	JOIN services s ON s.service_id = a.service_id
	JOIN sectors sec ON sec.sector_id = s.sector_id
	JOIN citizen_records c ON c.citizen_id = a.citizen_id`

const fromScoped = `
	FROM applications a
	JOIN services s ON s.service_id = a.service_id
	JOIN sectors sec ON sec.sector_id = s.sector_id`

func (s *PostgresStore) Create(ctx context.Context, app *models.Application, capacity *int) (int64, error) {
	data, err := json.Marshal(app.ApplicationData)
	if err != nil {
		return 0, fmt.Errorf("encode application data: %w", err)
	}

	var id int64
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if capacity != nil {
			if _, err := tx.ExecContext(ctx,
				`SELECT service_id FROM services WHERE service_id = $1 FOR UPDATE`, app.ServiceID); err != nil {
				return fmt.Errorf("lock service: %w", err)
			}
			var active int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM applications WHERE service_id = $1 AND status <> 'rejected'`,
				app.ServiceID).Scan(&active); err != nil {
				return fmt.Errorf("count applications: %w", err)
			}
			if active >= *capacity {
				return ErrCapacityReached
			}
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO applications (reference_number, citizen_id, service_id, application_type,
			                          application_data, status, priority, sla_due_date, submitted_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			RETURNING application_id`,
			app.ReferenceNumber, app.CitizenID, app.ServiceID, app.ApplicationType,
			string(data), string(app.Status), string(app.Priority), app.SLADueDate, app.SubmittedAt,
		).Scan(&id)
		if database.IsUniqueViolation(err) {
			return ErrDuplicateReference
		}
		if database.IsForeignKeyViolation(err) {
			if database.PgConstraint(err) == "applications_service_id_fkey" {
				return ErrUnknownService
			}
			return ErrUnknownCitizen
		}
		if err != nil {
			return fmt.Errorf("insert application: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, selectApplication+` WHERE a.application_id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load application %d: %w", id, err)
	}
	return app, nil
}

// scopeWhere renders the filter as a WHERE clause with positional args.
func scopeWhere(f models.ApplicationFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("a.status = $%d", string(f.Status))
	}
	if f.Sector != "" {
		add("sec.sector_name = $%d", f.Sector)
	}
	if f.CitizenID > 0 {
		add("a.citizen_id = $%d", f.CitizenID)
	}
	if f.DateFrom != nil {
		add("a.submitted_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("a.submitted_at < $%d", f.DateTo.AddDate(0, 0, 1))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PostgresStore) List(ctx context.Context, f models.ApplicationFilter) ([]models.Application, int, error) {
	where, args := scopeWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+fromScoped+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	query := selectApplication + where +
		fmt.Sprintf(` ORDER BY a.submitted_at DESC, a.application_id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	items := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan application: %w", err)
		}
		items = append(items, *app)
	}
	return items, total, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, ch StatusChange) (bool, error) {
	var reviewedAt, completedAt sql.NullTime
	switch ch.To {
	case models.StatusApproved, models.StatusRejected:
		reviewedAt = sql.NullTime{Time: ch.At, Valid: true}
	case models.StatusCompleted:
		completedAt = sql.NullTime{Time: ch.At, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET status = $3,
		    reviewed_at = COALESCE($4, reviewed_at),
		    completed_at = COALESCE($5, completed_at),
		    reviewer_notes = COALESCE($6, reviewer_notes),
		    rejection_reason = COALESCE($7, rejection_reason),
		    updated_at = $8
		WHERE application_id = $1 AND status = $2`,
		id, string(ch.From), string(ch.To), reviewedAt, completedAt,
		nullableText(ch.ReviewerNotes), nullableText(ch.RejectionReason), ch.At,
	)
	if err != nil {
		return false, fmt.Errorf("update application status: %w", err)
	}
	return affected(res)
}

func (s *PostgresStore) Assign(ctx context.Context, id int64, from, to models.ApplicationStatus, assignee int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE applications SET assigned_to = $3, status = $4, updated_at = $5
		WHERE application_id = $1 AND status = $2`,
		id, string(from), assignee, string(to), at)
	if database.IsForeignKeyViolation(err) {
		return false, ErrUnknownAssignee
	}
	if err != nil {
		return false, fmt.Errorf("assign application: %w", err)
	}
	return affected(res)
}

func (s *PostgresStore) UpdateNotes(ctx context.Context, id int64, status models.ApplicationStatus, notes, reason *string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET reviewer_notes = COALESCE($3, reviewer_notes),
		    rejection_reason = COALESCE($4, rejection_reason),
		    updated_at = $5
		WHERE application_id = $1 AND status = $2`,
		id, string(status), nullableText(notes), nullableText(reason), at)
	if err != nil {
		return false, fmt.Errorf("update reviewer notes: %w", err)
	}
	return affected(res)
}

func (s *PostgresStore) Summary(ctx context.Context, f models.ApplicationFilter, userID int64, today, dueBy time.Time) (*models.ApplicationSummary, error) {
	scope := models.ApplicationFilter{Sector: f.Sector, CitizenID: f.CitizenID}
	where, args := scopeWhere(scope)

	rows, err := s.db.QueryContext(ctx, `SELECT a.status, COUNT(*)`+fromScoped+where+` GROUP BY a.status`, args...)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	sum := &models.ApplicationSummary{ByStatus: map[models.ApplicationStatus]int{}}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		sum.ByStatus[models.ApplicationStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE a.sla_due_date < $%[1]d::date AND a.status IN ('submitted', 'in_review')),
			COUNT(*) FILTER (WHERE a.assigned_to = $%[2]d AND a.status IN ('submitted', 'in_review')),
			COUNT(*) FILTER (WHERE a.assigned_to = $%[2]d AND a.status IN ('submitted', 'in_review')
			                 AND a.sla_due_date BETWEEN $%[1]d::date AND $%[3]d::date)`, n+1, n+2, n+3)
	err = s.db.QueryRowContext(ctx, query+fromScoped+where, append(args, reference.DateParam(today), userID, reference.DateParam(dueBy))...).
		Scan(&sum.Overdue, &sum.AssignedMe, &sum.DueSoon)
	if err != nil {
		return nil, fmt.Errorf("workload counts: %w", err)
	}
	return sum, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row scanner) (*models.Application, error) {
	var (
		app                       models.Application
		status, priority          string
		assignedTo, citizenUserID sql.NullInt64
		reviewedAt, completedAt   sql.NullTime
		data                      []byte
	)
	err := row.Scan(&app.ID, &app.ReferenceNumber, &app.CitizenID, &app.ServiceID, &app.ApplicationType,
		&status, &priority, &app.SLADueDate, &assignedTo, &app.SubmittedAt, &reviewedAt,
		&completedAt, &app.ReviewerNotes, &app.RejectionReason,
		&data, &app.ServiceName, &app.Sector, &app.CitizenName, &citizenUserID)
	if err != nil {
		return nil, err
	}
	app.Status = models.ApplicationStatus(status)
	app.Priority = models.Priority(priority)
	app.AssignedTo = database.Int64Ptr(assignedTo)
	app.CitizenUserID = database.Int64Ptr(citizenUserID)
	app.ReviewedAt = database.TimePtr(reviewedAt)
	app.CompletedAt = database.TimePtr(completedAt)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &app.ApplicationData); err != nil {
			return nil, fmt.Errorf("decode application data: %w", err)
		}
	}
	return &app, nil
}

func nullableText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
