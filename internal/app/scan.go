package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/trygglink/internal/engine"
	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/model"
	"github.com/raysh454/trygglink/internal/store"
	"github.com/raysh454/trygglink/internal/utils"
)

// ErrInvalidInput marks requests the caller must fix; the API maps it to 400.
var ErrInvalidInput = errors.New("invalid input")

// Metadata keys the scan service adds to results.
const (
	MetaCached  = "cached"
	MetaChanges = "changes"
)

// Scanner produces verdicts. *engine.Engine implements it.
type Scanner interface {
	CheckURLSafety(ctx context.Context, rawURL string) *model.ScanResult
	CheckFileSafety(ctx context.Context, data []byte, fileName string) *model.ScanResult
}

// ScanService is the caller side of the engine: it serves fresh cached
// results, bounds engine calls, persists verdicts, registers deep scans and
// publishes completed scans to the live feed.
type ScanService struct {
	cfg     ScanConfig
	scanner Scanner
	store   store.Store
	feed    *Feed
	logger  logging.Logger
	now     func() time.Time
}

func NewScanService(cfg ScanConfig, scanner Scanner, st store.Store, feed *Feed, logger logging.Logger) *ScanService {
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	if feed == nil {
		feed = NewFeed()
	}
	return &ScanService{
		cfg:     cfg,
		scanner: scanner,
		store:   st,
		feed:    feed,
		logger:  logger.With(logging.Field{Key: "component", Value: "scans"}),
		now:     time.Now,
	}
}

// ScanURL returns the verdict for rawURL, reusing a stored result younger
// than the cache TTL.
func (s *ScanService) ScanURL(ctx context.Context, rawURL string) (*model.ScanResult, error) {
	normalized, err := utils.NormalizeScanURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	prev, err := s.store.LatestByURL(ctx, normalized)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up cached scan: %w", err)
	}
	if s.fresh(prev) {
		s.logger.Debug("serving cached scan", logging.Field{Key: "url", Value: normalized}, logging.Field{Key: "scan_id", Value: prev.ID})
		return markCached(prev), nil
	}

	engineCtx, cancel := s.withTimeout(ctx)
	res := s.scanner.CheckURLSafety(engineCtx, normalized)
	cancel()

	return s.complete(ctx, res, prev)
}

// ScanFile returns the verdict for a file, reusing a stored result for the
// same content hash younger than the cache TTL.
func (s *ScanService) ScanFile(ctx context.Context, data []byte, fileName string) (*model.ScanResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	hash := engine.HashBytes(data)
	prev, err := s.store.LatestByFileHash(ctx, hash)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up cached scan: %w", err)
	}
	if s.fresh(prev) {
		s.logger.Debug("serving cached scan", logging.Field{Key: "file_hash", Value: hash}, logging.Field{Key: "scan_id", Value: prev.ID})
		return markCached(prev), nil
	}

	engineCtx, cancel := s.withTimeout(ctx)
	res := s.scanner.CheckFileSafety(engineCtx, data, fileName)
	cancel()

	return s.complete(ctx, res, prev)
}

func (s *ScanService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

func (s *ScanService) fresh(prev *model.ScanResult) bool {
	return prev != nil && s.cfg.CacheTTL > 0 && s.now().Sub(prev.CreatedAt) < s.cfg.CacheTTL
}

func markCached(r *model.ScanResult) *model.ScanResult {
	out := *r
	out.Metadata = make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata[MetaCached] = true
	return &out
}

// complete persists res and runs the post-scan side effects. A failure to
// register the deep scan is logged and does not fail the request.
func (s *ScanService) complete(ctx context.Context, res *model.ScanResult, prev *model.ScanResult) (*model.ScanResult, error) {
	if prev != nil {
		added, removed := diffReasons(prev.Reasons, res.Reasons)
		changes := ReasonChanges{PreviousID: prev.ID, PreviousScore: prev.RiskScore, Added: added, Removed: removed}
		if !changes.Empty() || prev.RiskScore != res.RiskScore {
			if res.Metadata == nil {
				res.Metadata = map[string]any{}
			}
			res.Metadata[MetaChanges] = changes
		}
	}

	if err := s.store.SaveScan(ctx, res); err != nil {
		s.logger.Error("saving scan", logging.Field{Key: "scan_id", Value: res.ID}, logging.Err(err))
		return nil, fmt.Errorf("saving scan: %w", err)
	}

	if externalID, ok := res.Metadata[engine.MetaDeepScanID].(string); ok && externalID != "" {
		now := s.now().UTC()
		ds := &model.DeepScan{
			ID:         uuid.NewString(),
			ScanID:     res.ID,
			Provider:   "urlscan.io",
			ExternalID: externalID,
			Status:     model.DeepScanPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.store.SaveDeepScan(ctx, ds); err != nil {
			s.logger.Warn("registering deep scan", logging.Field{Key: "scan_id", Value: res.ID}, logging.Err(err))
		}
	}

	s.logger.Info("scan completed",
		logging.Field{Key: "scan_id", Value: res.ID},
		logging.Field{Key: "scan_type", Value: string(res.ScanType)},
		logging.Field{Key: "input", Value: res.InputRef()},
		logging.Field{Key: "risk_score", Value: res.RiskScore},
		logging.Field{Key: "verdict", Value: string(res.Verdict)})

	s.feed.Publish(FeedEvent{Type: FeedScanCompleted, Scan: res})
	return res, nil
}

// Scan returns a stored result by id.
func (s *ScanService) Scan(ctx context.Context, id string) (*model.ScanResult, error) {
	return s.store.GetScan(ctx, id)
}

// DeepScan returns the deep-scan job attached to a stored result.
func (s *ScanService) DeepScan(ctx context.Context, scanID string) (*model.DeepScan, error) {
	return s.store.GetDeepScan(ctx, scanID)
}

// RecentScans returns the newest stored results.
func (s *ScanService) RecentScans(ctx context.Context, limit int) ([]*model.ScanResult, error) {
	return s.store.RecentScans(ctx, limit)
}

// Stats aggregates usage over the last 24 hours of API traffic.
func (s *ScanService) Stats(ctx context.Context) (model.UsageStats, error) {
	return s.store.UsageStats(ctx, s.now().Add(-24*time.Hour))
}

// RecordUsage stores one admitted API request.
func (s *ScanService) RecordUsage(ctx context.Context, endpoint, ip, userAgent string) error {
	return s.store.RecordUsage(ctx, model.APIUsage{
		ID:           uuid.NewString(),
		Endpoint:     endpoint,
		IPAddress:    ip,
		UserAgent:    userAgent,
		RequestCount: 1,
		CreatedAt:    s.now().UTC(),
	})
}

// Feed returns the live event feed.
func (s *ScanService) Feed() *Feed {
	return s.feed
}
