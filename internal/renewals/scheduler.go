package renewals

import (
	"context"
	"errors"
	"time"

	"pwd-access/internal/common/database"
	"pwd-access/internal/common/logger"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

var lockKey = database.Key("lock", "renewal-scan")

// Scheduler runs the scan on a cron schedule. A redis lock keeps concurrent
// processes from scanning on the same tick; the de-dup in NotifyOnce still
// holds without it.
type Scheduler struct {
	scanner    *Scanner
	cron       *cron.Cron
	locker     *redislock.Client
	lockTTL    time.Duration
	windowDays int
	logger     logger.Logger
}

func NewScheduler(scanner *Scanner, rdb redis.UniversalClient, lockTTL time.Duration, windowDays int, log logger.Logger) *Scheduler {
	s := &Scheduler{
		scanner:    scanner,
		cron:       cron.New(),
		lockTTL:    lockTTL,
		windowDays: windowDays,
		logger:     logger.Component(log, "renewal-scheduler"),
	}
	if rdb != nil {
		s.locker = redislock.New(rdb)
	}
	return s
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("renewal scan scheduled", map[string]interface{}{"schedule": spec})
	return nil
}

// Every adds a housekeeping job to the same cron loop.
func (s *Scheduler) Every(spec, name string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(context.Background()); err != nil {
			s.logger.Warn("scheduled job failed", map[string]interface{}{"job": name, "error": err})
		}
	})
	return err
}

// Run starts the cron loop for housekeeping jobs. It is a no-op once running.
func (s *Scheduler) Run() {
	s.cron.Start()
}

// Stop waits for a running scan to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("renewal scan still running at shutdown", nil)
	}
}

// RunOnce scans if it can take the lock. It reports whether a scan ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, lockKey, s.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.logger.Debug("renewal scan already running elsewhere", nil)
			return false
		}
		if err != nil {
			s.logger.Warn("renewal lock unavailable, scanning without it", map[string]interface{}{"error": err})
		} else {
			defer func() {
				if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
					s.logger.Warn("failed to release renewal lock", map[string]interface{}{"error": err})
				}
			}()
		}
	}

	if _, err := s.scanner.Scan(ctx, s.windowDays); err != nil {
		s.logger.Error("scheduled renewal scan failed", map[string]interface{}{"error": err})
	}
	return true
}
