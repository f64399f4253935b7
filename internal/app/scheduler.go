package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/raysh454/trygglink/internal/logging"
)

// Scheduler runs Jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger logging.Logger
}

// NewScheduler registers the configured jobs. Each run gets ctx; a run that
// is still going when its next tick fires is skipped.
func NewScheduler(ctx context.Context, cfg JobsConfig, jobs *Jobs, logger logging.Logger) (*Scheduler, error) {
	logger = logger.With(logging.Field{Key: "component", Value: "scheduler"})
	cl := cronLogger{logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	if cfg.DeepScanSchedule != "" {
		if _, err := c.AddFunc(cfg.DeepScanSchedule, func() {
			if _, err := jobs.PollDeepScans(ctx); err != nil {
				logger.Warn("polling deep scans", logging.Err(err))
			}
		}); err != nil {
			return nil, fmt.Errorf("deep scan schedule %q: %w", cfg.DeepScanSchedule, err)
		}
	}
	if cfg.PurgeSchedule != "" {
		if _, err := c.AddFunc(cfg.PurgeSchedule, func() {
			if _, err := jobs.Purge(ctx); err != nil {
				logger.Warn("purging old scans", logging.Err(err))
			}
		}); err != nil {
			return nil, fmt.Errorf("purge schedule %q: %w", cfg.PurgeSchedule, err)
		}
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", logging.Field{Key: "jobs", Value: s.Entries()})
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(kvFields(keysAndValues), logging.Err(err))...)
}

func kvFields(kv []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logging.Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return fields
}
