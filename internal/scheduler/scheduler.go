// Package scheduler runs periodic index reports and cache housekeeping.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/robfig/cron/v3"
)

// Reporter posts the default index to a chat.
type Reporter interface {
	Report(ctx context.Context, chatID int64) error
}

// Purger removes cached price series older than maxAge.
type Purger interface {
	Purge(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Scheduler manages the cron tasks. Schedules have six fields, seconds first.
type Scheduler struct {
	Cron    *cron.Cron
	Ctx     context.Context
	Timeout time.Duration
	logger  log.Logger
}

// NewScheduler creates a scheduler whose jobs run under ctx, each bounded by timeout.
func NewScheduler(ctx context.Context, timeout time.Duration, logger log.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Ctx:     ctx,
		Timeout: timeout,
		logger:  logger,
	}
}

// RegisterReport posts the default index to chatID on the cron schedule.
func (s *Scheduler) RegisterReport(spec string, chatID int64, r Reporter) error {
	if _, err := s.Cron.AddFunc(spec, s.reportTask(chatID, r)); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	_ = level.Info(s.logger).Log("msg", "report scheduled", "cron", spec, "chat_id", chatID)
	return nil
}

// RegisterPurge deletes cache entries older than maxAge on the cron schedule.
func (s *Scheduler) RegisterPurge(spec string, maxAge time.Duration, p Purger) error {
	if _, err := s.Cron.AddFunc(spec, s.purgeTask(maxAge, p)); err != nil {
		return fmt.Errorf("register purge task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	_ = level.Info(s.logger).Log("msg", "scheduler started", "entries", len(s.Cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	_ = level.Info(s.logger).Log("msg", "scheduler stopped")
}

func (s *Scheduler) reportTask(chatID int64, r Reporter) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.Ctx, s.Timeout)
		defer cancel()
		start := time.Now()
		if err := r.Report(ctx, chatID); err != nil {
			_ = level.Error(s.logger).Log("msg", "scheduled report failed", "chat_id", chatID, "err", err)
			return
		}
		_ = level.Info(s.logger).Log("msg", "scheduled report sent", "chat_id", chatID, "took", time.Since(start))
	}
}

func (s *Scheduler) purgeTask(maxAge time.Duration, p Purger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.Ctx, s.Timeout)
		defer cancel()
		n, err := p.Purge(ctx, maxAge)
		if err != nil {
			_ = level.Error(s.logger).Log("msg", "cache purge failed", "err", err)
			return
		}
		_ = level.Debug(s.logger).Log("msg", "cache purged", "removed", n)
	}
}
