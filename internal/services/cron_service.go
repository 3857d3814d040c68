package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// WizardSweepSchedule runs the idle wizard sweep at the top of every minute
const WizardSweepSchedule = "0 * * * * *"

// HandoffPurger deletes consumed and stale handoff records
type HandoffPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// IdleExpirer closes idle wizard sessions
type IdleExpirer interface {
	ExpireIdle() int
}

// CronService manages scheduled background jobs
type CronService struct {
	cron            *cron.Cron
	handoff         HandoffPurger
	wizards         IdleExpirer
	cleanupSchedule string
	logger          *logrus.Logger
}

// NewCronService creates a new CronService. cleanupSchedule uses the
// six-field format: second minute hour day month weekday.
func NewCronService(handoff HandoffPurger, wizards IdleExpirer, cleanupSchedule string, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:            cron.New(cron.WithSeconds()),
		handoff:         handoff,
		wizards:         wizards,
		cleanupSchedule: cleanupSchedule,
		logger:          logger,
	}
}

// Start schedules every job and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.cleanupSchedule, s.purgeHandoffJob); err != nil {
		return fmt.Errorf("failed to schedule handoff cleanup job: %w", err)
	}
	s.logger.WithField("schedule", s.cleanupSchedule).Info("Scheduled: handoff cleanup")

	if _, err := s.cron.AddFunc(WizardSweepSchedule, s.expireWizardsJob); err != nil {
		return fmt.Errorf("failed to schedule wizard sweep job: %w", err)
	}
	s.logger.WithField("schedule", WizardSweepSchedule).Info("Scheduled: idle wizard sweep")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// RunPurgeNow runs the handoff cleanup immediately
func (s *CronService) RunPurgeNow() {
	s.purgeHandoffJob()
}

func (s *CronService) purgeHandoffJob() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.handoff.Purge(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Handoff cleanup failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"deleted":  deleted,
		"duration": time.Since(start).String(),
	}).Info("[CRON] Handoff cleanup finished")
}

func (s *CronService) expireWizardsJob() {
	if n := s.wizards.ExpireIdle(); n > 0 {
		s.logger.WithField("expired", n).Debug("[CRON] Idle wizards expired")
	}
}

// JobStatus returns the scheduled jobs and their next runs
func (s *CronService) JobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
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
