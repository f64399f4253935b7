package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/raysh454/trygglink/internal/model"
	"github.com/raysh454/trygglink/internal/store"
	"github.com/raysh454/trygglink/internal/testutil"
)

type factory struct {
	name string
	open func(t *testing.T) store.Store
}

func factories() []factory {
	return []factory{
		{"memory", func(t *testing.T) store.Store { return store.NewMemoryStore() }},
		{"sqlite", func(t *testing.T) store.Store {
			t.Helper()
			s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "data", "trygglink.db"), &testutil.DummyLogger{})
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}},
	}
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s store.Store)) {
	for _, f := range factories() {
		f := f
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			fn(t, f.open(t))
		})
	}
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func urlScan(id, url string, verdict model.Verdict, at time.Time) *model.ScanResult {
	score := map[model.Verdict]int{model.VerdictSafe: 0, model.VerdictSuspicious: 40, model.VerdictMalicious: 90}[verdict]
	return &model.ScanResult{
		ID:        id,
		ScanType:  model.ScanTypeURL,
		URL:       url,
		RiskScore: score,
		Verdict:   verdict,
		Reasons:   []string{"No security threats detected"},
		SecurityChecks: []model.SecurityCheck{
			{Name: "Google Safe Browsing", Status: model.StatusClean, Details: "No threats detected"},
			{Name: "Heuristic Analysis", Status: model.StatusClean, Details: "No suspicious patterns found"},
		},
		DomainInfo: &model.DomainInfo{Registrar: "Example Registrar", IP: "93.184.216.34", Country: "US", AgeDays: 9000},
		Metadata:   map[string]any{"urlscanUuid": "abc"},
		CreatedAt:  at,
	}
}

func fileScan(id, hash string, at time.Time) *model.ScanResult {
	return &model.ScanResult{
		ID:        id,
		ScanType:  model.ScanTypeFile,
		FileName:  "invoice.pdf",
		FileHash:  hash,
		FileSize:  1024,
		RiskScore: 15,
		Verdict:   model.VerdictSafe,
		Reasons:   []string{"File reputation service unavailable - basic analysis only"},
		SecurityChecks: []model.SecurityCheck{
			{Name: "VirusTotal", Status: model.StatusError, Details: "Service unavailable"},
		},
		CreatedAt: at,
	}
}

// ─── scans ─────────────────────────────────────────────────────────────

func TestStore_SaveAndGetScan(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		in := urlScan("s1", "https://example.com", model.VerdictSafe, base)
		if err := s.SaveScan(ctx, in); err != nil {
			t.Fatalf("SaveScan: %v", err)
		}

		got, err := s.GetScan(ctx, "s1")
		if err != nil {
			t.Fatalf("GetScan: %v", err)
		}
		if got.URL != in.URL || got.Verdict != in.Verdict || got.RiskScore != in.RiskScore {
			t.Fatalf("round trip mismatch: %+v", got)
		}
		if len(got.SecurityChecks) != 2 || got.SecurityChecks[1].Name != "Heuristic Analysis" {
			t.Fatalf("checks not preserved in order: %+v", got.SecurityChecks)
		}
		if got.DomainInfo == nil || got.DomainInfo.AgeDays != 9000 {
			t.Fatalf("domain info lost: %+v", got.DomainInfo)
		}
		if got.Metadata["urlscanUuid"] != "abc" {
			t.Fatalf("metadata lost: %+v", got.Metadata)
		}
		if !got.CreatedAt.Equal(base) {
			t.Fatalf("created_at = %v, want %v", got.CreatedAt, base)
		}
	})
}

func TestStore_GetScanNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		if _, err := s.GetScan(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("GetScan err = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_SaveScanRejectsInvalid(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		bad := urlScan("bad", "https://example.com", model.VerdictSafe, base)
		bad.RiskScore = 140
		if err := s.SaveScan(context.Background(), bad); !errors.Is(err, store.ErrInvalid) {
			t.Fatalf("SaveScan err = %v, want ErrInvalid", err)
		}
	})
}

func TestStore_SaveScanAssignsIDAndTime(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		r := urlScan("", "https://example.com", model.VerdictSafe, time.Time{})
		if err := s.SaveScan(context.Background(), r); err != nil {
			t.Fatalf("SaveScan: %v", err)
		}
		if r.ID == "" || r.CreatedAt.IsZero() {
			t.Fatalf("expected id and created_at to be assigned, got %q %v", r.ID, r.CreatedAt)
		}
	})
}

func TestStore_LatestByURLAndHash(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		for _, r := range []*model.ScanResult{
			urlScan("old", "https://example.com", model.VerdictSafe, base),
			urlScan("new", "https://example.com", model.VerdictSuspicious, base.Add(time.Hour)),
			urlScan("other", "https://other.test", model.VerdictSafe, base.Add(2*time.Hour)),
			fileScan("f1", "aa11", base),
			fileScan("f2", "aa11", base.Add(time.Minute)),
		} {
			if err := s.SaveScan(ctx, r); err != nil {
				t.Fatalf("SaveScan %s: %v", r.ID, err)
			}
		}

		got, err := s.LatestByURL(ctx, "https://example.com")
		if err != nil {
			t.Fatalf("LatestByURL: %v", err)
		}
		if got.ID != "new" {
			t.Fatalf("LatestByURL = %s, want new", got.ID)
		}

		f, err := s.LatestByFileHash(ctx, "aa11")
		if err != nil {
			t.Fatalf("LatestByFileHash: %v", err)
		}
		if f.ID != "f2" || f.FileSize != 1024 || f.FileName != "invoice.pdf" {
			t.Fatalf("LatestByFileHash = %+v", f)
		}
		if f.DomainInfo != nil {
			t.Fatalf("file scan should not carry domain info")
		}

		if _, err := s.LatestByURL(ctx, "https://never.test"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("LatestByURL unknown err = %v", err)
		}
	})
}

func TestStore_RecentScansNewestFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		for i, id := range []string{"a", "b", "c"} {
			if err := s.SaveScan(ctx, urlScan(id, "https://example.com/"+id, model.VerdictSafe, base.Add(time.Duration(i)*time.Minute))); err != nil {
				t.Fatalf("SaveScan: %v", err)
			}
		}
		got, err := s.RecentScans(ctx, 2)
		if err != nil {
			t.Fatalf("RecentScans: %v", err)
		}
		if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
			t.Fatalf("RecentScans order wrong: %v", ids(got))
		}

		all, err := s.RecentScans(ctx, 0)
		if err != nil {
			t.Fatalf("RecentScans default: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("RecentScans(0) len = %d, want 3", len(all))
		}
	})
}

func ids(rs []*model.ScanResult) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

// ─── usage ─────────────────────────────────────────────────────────────

func TestStore_UsageStats(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		scans := []*model.ScanResult{
			urlScan("m1", "https://bad.test", model.VerdictMalicious, base),
			urlScan("m2", "https://worse.test", model.VerdictMalicious, base),
			urlScan("s1", "https://example.com", model.VerdictSafe, base),
			fileScan("f1", "ff00", base),
		}
		for _, r := range scans {
			if err := s.SaveScan(ctx, r); err != nil {
				t.Fatalf("SaveScan: %v", err)
			}
		}

		now := base.Add(48 * time.Hour)
		usage := []model.APIUsage{
			{Endpoint: "/api/check-url", IPAddress: "10.0.0.1", CreatedAt: now.Add(-time.Hour)},
			{Endpoint: "/api/check-url", IPAddress: "10.0.0.1", CreatedAt: now.Add(-2 * time.Hour)},
			{Endpoint: "/api/scan-file", IPAddress: "10.0.0.2", CreatedAt: now.Add(-3 * time.Hour)},
			{Endpoint: "/api/check-url", IPAddress: "10.0.0.3", CreatedAt: now.Add(-30 * time.Hour)},
			{Endpoint: "/api/check-url", CreatedAt: now.Add(-time.Minute)},
		}
		for _, u := range usage {
			if err := s.RecordUsage(ctx, u); err != nil {
				t.Fatalf("RecordUsage: %v", err)
			}
		}

		st, err := s.UsageStats(ctx, now.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("UsageStats: %v", err)
		}
		want := model.UsageStats{TotalScans: 4, MaliciousCount: 2, ErrorRate: 25, ActiveUsers: 2}
		if st != want {
			t.Fatalf("UsageStats = %+v, want %+v", st, want)
		}
	})
}

func TestStore_UsageStatsEmpty(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		st, err := s.UsageStats(context.Background(), base)
		if err != nil {
			t.Fatalf("UsageStats: %v", err)
		}
		if st != (model.UsageStats{}) {
			t.Fatalf("UsageStats on empty store = %+v", st)
		}
	})
}

// ─── deep scans ────────────────────────────────────────────────────────

func TestStore_DeepScanLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		if err := s.SaveScan(ctx, urlScan("s1", "https://example.com", model.VerdictSafe, base)); err != nil {
			t.Fatalf("SaveScan: %v", err)
		}
		d := &model.DeepScan{ScanID: "s1", Provider: "urlscan.io", ExternalID: "abc", CreatedAt: base}
		if err := s.SaveDeepScan(ctx, d); err != nil {
			t.Fatalf("SaveDeepScan: %v", err)
		}
		if d.ID == "" || d.Status != model.DeepScanPending {
			t.Fatalf("SaveDeepScan did not fill defaults: %+v", d)
		}

		pending, err := s.PendingDeepScans(ctx, 10)
		if err != nil {
			t.Fatalf("PendingDeepScans: %v", err)
		}
		if len(pending) != 1 || pending[0].ExternalID != "abc" {
			t.Fatalf("PendingDeepScans = %+v", pending)
		}

		d.Status = model.DeepScanDone
		d.Attempts = 2
		d.Malicious = true
		d.Score = 88
		d.Screenshot = "https://shot"
		if err := s.UpdateDeepScan(ctx, d); err != nil {
			t.Fatalf("UpdateDeepScan: %v", err)
		}

		got, err := s.GetDeepScan(ctx, "s1")
		if err != nil {
			t.Fatalf("GetDeepScan: %v", err)
		}
		if got.Status != model.DeepScanDone || !got.Malicious || got.Score != 88 || got.Attempts != 2 {
			t.Fatalf("GetDeepScan = %+v", got)
		}

		pending, _ = s.PendingDeepScans(ctx, 10)
		if len(pending) != 0 {
			t.Fatalf("expected no pending deep scans, got %d", len(pending))
		}

		if err := s.UpdateDeepScan(ctx, &model.DeepScan{ScanID: "nope"}); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("UpdateDeepScan unknown err = %v", err)
		}
		if _, err := s.GetDeepScan(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("GetDeepScan unknown err = %v", err)
		}
	})
}

// ─── retention ─────────────────────────────────────────────────────────

func TestStore_PurgeBefore(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		old := urlScan("old", "https://example.com", model.VerdictSafe, base.Add(-40*24*time.Hour))
		fresh := urlScan("fresh", "https://example.com", model.VerdictSafe, base)
		for _, r := range []*model.ScanResult{old, fresh} {
			if err := s.SaveScan(ctx, r); err != nil {
				t.Fatalf("SaveScan: %v", err)
			}
		}
		if err := s.SaveDeepScan(ctx, &model.DeepScan{ScanID: "old", Provider: "urlscan.io", ExternalID: "x", CreatedAt: old.CreatedAt}); err != nil {
			t.Fatalf("SaveDeepScan: %v", err)
		}

		n, err := s.PurgeBefore(ctx, base.Add(-30*24*time.Hour))
		if err != nil {
			t.Fatalf("PurgeBefore: %v", err)
		}
		if n != 1 {
			t.Fatalf("PurgeBefore removed %d scans, want 1", n)
		}
		if _, err := s.GetScan(ctx, "old"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("old scan still present: %v", err)
		}
		if _, err := s.GetScan(ctx, "fresh"); err != nil {
			t.Fatalf("fresh scan purged: %v", err)
		}
		if _, err := s.GetDeepScan(ctx, "old"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("deep scan for purged result still present: %v", err)
		}
	})
}
