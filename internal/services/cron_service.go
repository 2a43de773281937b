package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// auditRetention is how long audit rows are kept before the weekly purge
const auditRetention = 180 * 24 * time.Hour

// SessionCleaner removes expired sessions
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	sessions  SessionCleaner
	rateLimit *RateLimitService
	audit     *AuditService
	logger    *logrus.Logger
	jobNames  map[cron.EntryID]string
}

// NewCronService creates a new CronService. rateLimit and audit may be nil.
func NewCronService(sessions SessionCleaner, rateLimit *RateLimitService, audit *AuditService, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:      cron.New(cron.WithSeconds()),
		sessions:  sessions,
		rateLimit: rateLimit,
		audit:     audit,
		logger:    logger,
		jobNames:  make(map[cron.EntryID]string),
	}
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Cron format: second minute hour day month weekday
	if err := s.schedule("cleanup_expired_sessions", "0 0 * * * *", s.cleanupSessionsJob); err != nil {
		return err
	}

	if s.rateLimit != nil {
		if err := s.schedule("cleanup_login_attempts", "0 30 * * * *", s.cleanupLoginAttemptsJob); err != nil {
			return err
		}
	}

	// Sundays at 4:00 AM
	if s.audit != nil {
		if err := s.schedule("cleanup_audit_logs", "0 0 4 * * 0", s.cleanupAuditLogsJob); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.WithField("jobs", len(s.jobNames)).Info("Cron service started")

	return nil
}

func (s *CronService) schedule(name, spec string, job func()) error {
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("failed to schedule %s job: %w", name, err)
	}
	s.jobNames[id] = name
	s.logger.WithFields(logrus.Fields{"job": name, "schedule": spec}).Info("Scheduled job")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) cleanupSessionsJob() {
	s.runJob("cleanup_expired_sessions", s.sessions.DeleteExpired)
}

func (s *CronService) cleanupLoginAttemptsJob() {
	s.runJob("cleanup_login_attempts", s.rateLimit.CleanupExpiredAttempts)
}

func (s *CronService) cleanupAuditLogsJob() {
	s.runJob("cleanup_audit_logs", func(ctx context.Context) (int64, error) {
		return s.audit.CleanupOldAuditLogs(ctx, auditRetention)
	})
}

func (s *CronService) runJob(name string, fn func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	startTime := time.Now()
	removed, err := fn(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("job", name).Error("Cron job failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"removed":  removed,
		"duration": time.Since(startTime).String(),
	}).Info("Cron job completed")
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"name":     s.jobNames[entry.ID],
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
