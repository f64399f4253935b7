// Package store persists scan results, API usage and deep-scan jobs.
package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/raysh454/trygglink/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid record")
)

// DefaultRecentLimit is used when RecentScans is called with limit <= 0.
const DefaultRecentLimit = 100

// Store is the persistence boundary used by the scan service and the HTTP
// layer. Implementations must be safe for concurrent use.
type Store interface {
	SaveScan(ctx context.Context, r *model.ScanResult) error
	GetScan(ctx context.Context, id string) (*model.ScanResult, error)
	// LatestByURL and LatestByFileHash return the newest result for the key.
	LatestByURL(ctx context.Context, url string) (*model.ScanResult, error)
	LatestByFileHash(ctx context.Context, hash string) (*model.ScanResult, error)
	RecentScans(ctx context.Context, limit int) ([]*model.ScanResult, error)

	RecordUsage(ctx context.Context, u model.APIUsage) error
	// UsageStats counts every stored scan; active users are distinct IPs
	// seen in API usage since the given time.
	UsageStats(ctx context.Context, since time.Time) (model.UsageStats, error)

	SaveDeepScan(ctx context.Context, d *model.DeepScan) error
	UpdateDeepScan(ctx context.Context, d *model.DeepScan) error
	GetDeepScan(ctx context.Context, scanID string) (*model.DeepScan, error)
	PendingDeepScans(ctx context.Context, limit int) ([]*model.DeepScan, error)

	// PurgeBefore deletes scans, usage rows and deep scans created before t
	// and reports how many scans were removed.
	PurgeBefore(ctx context.Context, t time.Time) (int64, error)

	Close() error
}

// errorRate returns the percentage of scans with an error check, rounded
// to one decimal.
func errorRate(withErrors, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(withErrors)*1000/float64(total)) / 10
}
