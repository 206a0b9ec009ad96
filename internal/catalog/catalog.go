// Package catalog looks up services, caching single-service reads in redis.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"pwd-access/internal/common/database"
	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/metrics"
	"pwd-access/internal/models"

	"github.com/redis/go-redis/v9"
)

type Catalog struct {
	db     *sql.DB
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

// New builds a catalog. A nil redis client disables caching.
func New(db *sql.DB, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *Catalog {
	return &Catalog{
		db:     db,
		redis:  rdb,
		ttl:    ttl,
		logger: logger.Component(log, "catalog"),
	}
}

const selectService = `
	SELECT s.service_id, s.service_name, sec.sector_name, s.capacity, s.processing_time_days,
	       s.application_start_date, s.application_end_date, s.status, s.form_schema
	FROM services s
	JOIN sectors sec ON sec.sector_id = s.sector_id`

func cacheKey(id int64) string {
	return database.Key("service", strconv.FormatInt(id, 10))
}

// Get returns the service, or NotFound.
func (c *Catalog) Get(ctx context.Context, id int64) (*models.Service, error) {
	if svc, ok := c.fromCache(ctx, id); ok {
		return svc, nil
	}

	row := c.db.QueryRowContext(ctx, selectService+` WHERE s.service_id = $1`, id)
	svc, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("service", id)
	}
	if err != nil {
		return nil, apperrors.NewSystemError("load service", err)
	}

	c.toCache(ctx, svc)
	return svc, nil
}

// ListActive returns active services, optionally limited to one sector.
func (c *Catalog) ListActive(ctx context.Context, sector string) ([]models.Service, error) {
	query := selectService + ` WHERE s.status = 'active' AND ($1 = '' OR sec.sector_name = $1) ORDER BY s.service_name`
	rows, err := c.db.QueryContext(ctx, query, sector)
	if err != nil {
		return nil, apperrors.NewSystemError("list services", err)
	}
	defer rows.Close()

	out := []models.Service{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, apperrors.NewSystemError("scan service", err)
		}
		out = append(out, *svc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewSystemError("list services", err)
	}
	return out, nil
}

// Invalidate drops the cached copy after an edit.
func (c *Catalog) Invalidate(ctx context.Context, id int64) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.Warn("service cache invalidation failed", map[string]interface{}{"serviceId": id, "error": err})
	}
}

func (c *Catalog) fromCache(ctx context.Context, id int64) (*models.Service, bool) {
	if c.redis == nil {
		return nil, false
	}
	val, err := c.redis.Get(ctx, cacheKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.CacheLookups.WithLabelValues("error").Inc()
			c.logger.Warn("service cache read failed", map[string]interface{}{"serviceId": id, "error": err})
		} else {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
		return nil, false
	}

	var svc models.Service
	if err := json.Unmarshal([]byte(val), &svc); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &svc, true
}

func (c *Catalog) toCache(ctx context.Context, svc *models.Service) {
	if c.redis == nil {
		return
	}
	b, err := json.Marshal(svc)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(svc.ID), b, c.ttl).Err(); err != nil {
		c.logger.Warn("service cache write failed", map[string]interface{}{"serviceId": svc.ID, "error": err})
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanService(row scanner) (*models.Service, error) {
	var (
		svc        models.Service
		capacity   sql.NullInt64
		start, end sql.NullTime
		schema     []byte
	)
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Sector, &capacity, &svc.ProcessingTimeDays,
		&start, &end, &svc.Status, &schema); err != nil {
		return nil, err
	}
	if capacity.Valid {
		n := int(capacity.Int64)
		svc.Capacity = &n
	}
	if start.Valid {
		t := start.Time
		svc.ApplicationStart = &t
	}
	if end.Valid {
		t := end.Time
		svc.ApplicationEnd = &t
	}
	if len(schema) > 0 {
		svc.FormSchema = json.RawMessage(schema)
	}
	return &svc, nil
}

