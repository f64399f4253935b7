package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/trygglink/internal/model"
)

// MemoryStore keeps everything in process memory. Records are copied on the
// way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu        sync.RWMutex
	scans     map[string]*model.ScanResult
	usage     []model.APIUsage
	deepScans map[string]*model.DeepScan // keyed by scan id
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scans:     make(map[string]*model.ScanResult),
		deepScans: make(map[string]*model.DeepScan),
	}
}

func cloneScan(r *model.ScanResult) *model.ScanResult {
	c := *r
	c.Reasons = append([]string(nil), r.Reasons...)
	c.SecurityChecks = append([]model.SecurityCheck(nil), r.SecurityChecks...)
	if r.DomainInfo != nil {
		di := *r.DomainInfo
		c.DomainInfo = &di
	}
	if r.Metadata != nil {
		c.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func (m *MemoryStore) SaveScan(_ context.Context, r *model.ScanResult) error {
	if r == nil {
		return fmt.Errorf("save scan: %w", ErrInvalid)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("save scan: %w: %v", ErrInvalid, err)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[r.ID] = cloneScan(r)
	return nil
}

func (m *MemoryStore) GetScan(_ context.Context, id string) (*model.ScanResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.scans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneScan(r), nil
}

func (m *MemoryStore) latest(match func(*model.ScanResult) bool) (*model.ScanResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.ScanResult
	for _, r := range m.scans {
		if !match(r) {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return cloneScan(best), nil
}

func (m *MemoryStore) LatestByURL(_ context.Context, url string) (*model.ScanResult, error) {
	return m.latest(func(r *model.ScanResult) bool {
		return r.ScanType == model.ScanTypeURL && r.URL == url
	})
}

func (m *MemoryStore) LatestByFileHash(_ context.Context, hash string) (*model.ScanResult, error) {
	return m.latest(func(r *model.ScanResult) bool {
		return r.ScanType == model.ScanTypeFile && r.FileHash == hash
	})
}

func (m *MemoryStore) RecentScans(_ context.Context, limit int) ([]*model.ScanResult, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	m.mu.RLock()
	out := make([]*model.ScanResult, 0, len(m.scans))
	for _, r := range m.scans {
		out = append(out, cloneScan(r))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) RecordUsage(_ context.Context, u model.APIUsage) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.RequestCount == 0 {
		u.RequestCount = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = append(m.usage, u)
	return nil
}

func (m *MemoryStore) UsageStats(_ context.Context, since time.Time) (model.UsageStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st model.UsageStats
	withErrors := 0
	for _, r := range m.scans {
		st.TotalScans++
		if r.Verdict == model.VerdictMalicious {
			st.MaliciousCount++
		}
		if r.HasErrorCheck() {
			withErrors++
		}
	}
	st.ErrorRate = errorRate(withErrors, st.TotalScans)

	ips := make(map[string]struct{})
	for _, u := range m.usage {
		if u.IPAddress == "" || u.CreatedAt.Before(since) {
			continue
		}
		ips[u.IPAddress] = struct{}{}
	}
	st.ActiveUsers = len(ips)
	return st, nil
}

func (m *MemoryStore) SaveDeepScan(_ context.Context, d *model.DeepScan) error {
	if d == nil || d.ScanID == "" || d.ExternalID == "" {
		return fmt.Errorf("save deep scan: %w", ErrInvalid)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = d.CreatedAt
	if d.Status == "" {
		d.Status = model.DeepScanPending
	}
	c := *d
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deepScans[d.ScanID] = &c
	return nil
}

func (m *MemoryStore) UpdateDeepScan(_ context.Context, d *model.DeepScan) error {
	if d == nil {
		return fmt.Errorf("update deep scan: %w", ErrInvalid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deepScans[d.ScanID]; !ok {
		return ErrNotFound
	}
	d.UpdatedAt = time.Now().UTC()
	c := *d
	m.deepScans[d.ScanID] = &c
	return nil
}

func (m *MemoryStore) GetDeepScan(_ context.Context, scanID string) (*model.DeepScan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deepScans[scanID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *d
	return &c, nil
}

func (m *MemoryStore) PendingDeepScans(_ context.Context, limit int) ([]*model.DeepScan, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	m.mu.RLock()
	var out []*model.DeepScan
	for _, d := range m.deepScans {
		if d.Status == model.DeepScanPending {
			c := *d
			out = append(out, &c)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) PurgeBefore(_ context.Context, t time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.scans {
		if r.CreatedAt.Before(t) {
			delete(m.scans, id)
			n++
		}
	}
	for id, d := range m.deepScans {
		if d.CreatedAt.Before(t) {
			delete(m.deepScans, id)
		}
	}
	kept := m.usage[:0]
	for _, u := range m.usage {
		if !u.CreatedAt.Before(t) {
			kept = append(kept, u)
		}
	}
	m.usage = kept
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }
