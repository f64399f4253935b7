package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/model"
	"github.com/raysh454/trygglink/internal/provider"
	"github.com/raysh454/trygglink/internal/store"
)

// DeepScanFetcher retrieves finished sandbox reports. *provider.URLScan
// implements it.
type DeepScanFetcher interface {
	Result(ctx context.Context, id string) (provider.DeepScanReport, error)
}

// Jobs holds the background maintenance work run by the Scheduler.
type Jobs struct {
	cfg     JobsConfig
	store   store.Store
	fetcher DeepScanFetcher
	feed    *Feed
	logger  logging.Logger
	now     func() time.Time
}

func NewJobs(cfg JobsConfig, st store.Store, fetcher DeepScanFetcher, feed *Feed, logger logging.Logger) *Jobs {
	if cfg.DeepScanBatch <= 0 {
		cfg.DeepScanBatch = 20
	}
	if cfg.DeepScanMaxAttempts <= 0 {
		cfg.DeepScanMaxAttempts = 20
	}
	if feed == nil {
		feed = NewFeed()
	}
	return &Jobs{
		cfg:     cfg,
		store:   st,
		fetcher: fetcher,
		feed:    feed,
		logger:  logger.With(logging.Field{Key: "component", Value: "jobs"}),
		now:     time.Now,
	}
}

// PollDeepScans checks every pending deep scan once and returns how many
// finished. Scans still pending after MaxAttempts polls are expired.
func (j *Jobs) PollDeepScans(ctx context.Context) (int, error) {
	if j.fetcher == nil {
		return 0, nil
	}
	pending, err := j.store.PendingDeepScans(ctx, j.cfg.DeepScanBatch)
	if err != nil {
		return 0, fmt.Errorf("listing pending deep scans: %w", err)
	}

	done := 0
	for _, ds := range pending {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}

		report, err := j.fetcher.Result(ctx, ds.ExternalID)
		ds.UpdatedAt = j.now().UTC()
		switch {
		case err == nil:
			ds.Status = model.DeepScanDone
			ds.Malicious = report.Malicious
			ds.Score = report.Score
			ds.Screenshot = report.Screenshot
			ds.ReportURL = report.ReportURL
			done++
		default:
			ds.Attempts++
			if !errors.Is(err, provider.ErrScanPending) {
				j.logger.Warn("fetching deep scan result",
					logging.Field{Key: "external_id", Value: ds.ExternalID}, logging.Err(err))
			}
			if ds.Attempts >= j.cfg.DeepScanMaxAttempts {
				ds.Status = model.DeepScanExpired
				j.logger.Info("deep scan expired",
					logging.Field{Key: "scan_id", Value: ds.ScanID},
					logging.Field{Key: "attempts", Value: ds.Attempts})
			}
		}

		if err := j.store.UpdateDeepScan(ctx, ds); err != nil {
			return done, fmt.Errorf("updating deep scan %s: %w", ds.ID, err)
		}
		if ds.Status == model.DeepScanDone {
			j.feed.Publish(FeedEvent{Type: FeedDeepScanCompleted, DeepScan: ds})
		}
	}
	return done, nil
}

// Purge deletes records older than the retention period. RetentionDays of
// zero keeps everything.
func (j *Jobs) Purge(ctx context.Context) (int64, error) {
	if j.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := j.now().Add(-time.Duration(j.cfg.RetentionDays) * 24 * time.Hour)
	n, err := j.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging scans: %w", err)
	}
	if n > 0 {
		j.logger.Info("purged old scans", logging.Field{Key: "count", Value: n})
	}
	return n, nil
}
