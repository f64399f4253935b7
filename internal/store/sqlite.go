package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore persists records in a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, logger logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		return nil, errors.New("store: nil logger provided")
	}
	if path == "" {
		return nil, errors.New("store: database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s, err := NewSQLiteStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("sqlite store opened", logging.Field{Key: "path", Value: path})
	return s, nil
}

// NewSQLiteStore wraps an open database, setting pragmas and running the
// embedded schema.
func NewSQLiteStore(db *sql.DB, logger logging.Logger) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := applySchema(db); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "store"}),
	}, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// ─── scans ─────────────────────────────────────────────────────────────

const scanColumns = `id, scan_type, url, file_name, file_hash, file_size, risk_score, verdict,
        reasons, security_checks, domain_info, metadata, created_at`

func (s *SQLiteStore) SaveScan(ctx context.Context, r *model.ScanResult) error {
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

	reasons, err := json.Marshal(nonNil(r.Reasons))
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}
	checks, err := json.Marshal(nonNilChecks(r.SecurityChecks))
	if err != nil {
		return fmt.Errorf("encode checks: %w", err)
	}
	domainInfo, err := nullableJSON(r.DomainInfo, r.DomainInfo == nil)
	if err != nil {
		return fmt.Errorf("encode domain info: %w", err)
	}
	metadata, err := nullableJSON(r.Metadata, len(r.Metadata) == 0)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_results (`+scanColumns+`, has_error)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.ScanType), nullString(r.URL), nullString(r.FileName), nullString(r.FileHash), r.FileSize,
		r.RiskScore, string(r.Verdict), string(reasons), string(checks), domainInfo, metadata,
		r.CreatedAt.UnixMilli(), boolInt(r.HasErrorCheck()),
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResultRow(row rowScanner) (*model.ScanResult, error) {
	var (
		r                       model.ScanResult
		scanType, verdict       string
		url, fileName, fileHash sql.NullString
		reasons, checks         string
		domainInfo, metadata    sql.NullString
		createdAt               int64
	)
	if err := row.Scan(&r.ID, &scanType, &url, &fileName, &fileHash, &r.FileSize, &r.RiskScore, &verdict,
		&reasons, &checks, &domainInfo, &metadata, &createdAt); err != nil {
		return nil, err
	}
	r.ScanType = model.ScanType(scanType)
	r.Verdict = model.Verdict(verdict)
	r.URL, r.FileName, r.FileHash = url.String, fileName.String, fileHash.String
	r.CreatedAt = time.UnixMilli(createdAt).UTC()

	if err := json.Unmarshal([]byte(reasons), &r.Reasons); err != nil {
		return nil, fmt.Errorf("decode reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(checks), &r.SecurityChecks); err != nil {
		return nil, fmt.Errorf("decode checks: %w", err)
	}
	if domainInfo.Valid {
		r.DomainInfo = &model.DomainInfo{}
		if err := json.Unmarshal([]byte(domainInfo.String), r.DomainInfo); err != nil {
			return nil, fmt.Errorf("decode domain info: %w", err)
		}
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &r, nil
}

func (s *SQLiteStore) queryOne(ctx context.Context, query string, args ...any) (*model.ScanResult, error) {
	r, err := scanResultRow(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) GetScan(ctx context.Context, id string) (*model.ScanResult, error) {
	return s.queryOne(ctx, `SELECT `+scanColumns+` FROM scan_results WHERE id = ? LIMIT 1`, id)
}

func (s *SQLiteStore) LatestByURL(ctx context.Context, url string) (*model.ScanResult, error) {
	return s.queryOne(ctx,
		`SELECT `+scanColumns+` FROM scan_results
         WHERE scan_type = ? AND url = ?
         ORDER BY created_at DESC LIMIT 1`,
		string(model.ScanTypeURL), url)
}

func (s *SQLiteStore) LatestByFileHash(ctx context.Context, hash string) (*model.ScanResult, error) {
	return s.queryOne(ctx,
		`SELECT `+scanColumns+` FROM scan_results
         WHERE scan_type = ? AND file_hash = ?
         ORDER BY created_at DESC LIMIT 1`,
		string(model.ScanTypeFile), hash)
}

func (s *SQLiteStore) RecentScans(ctx context.Context, limit int) ([]*model.ScanResult, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scanColumns+` FROM scan_results ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent scans: %w", err)
	}
	defer rows.Close()

	out := make([]*model.ScanResult, 0, limit)
	for rows.Next() {
		r, err := scanResultRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── usage ─────────────────────────────────────────────────────────────

func (s *SQLiteStore) RecordUsage(ctx context.Context, u model.APIUsage) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.RequestCount == 0 {
		u.RequestCount = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_usage (id, endpoint, ip_address, user_agent, request_count, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Endpoint, nullString(u.IPAddress), nullString(u.UserAgent), u.RequestCount, u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UsageStats(ctx context.Context, since time.Time) (model.UsageStats, error) {
	var st model.UsageStats
	var malicious, withErrors sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
                SUM(CASE WHEN verdict = ? THEN 1 ELSE 0 END),
                SUM(has_error)
         FROM scan_results`,
		string(model.VerdictMalicious),
	).Scan(&st.TotalScans, &malicious, &withErrors)
	if err != nil {
		return st, fmt.Errorf("scan stats: %w", err)
	}
	st.MaliciousCount = int(malicious.Int64)
	st.ErrorRate = errorRate(int(withErrors.Int64), st.TotalScans)

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT ip_address) FROM api_usage
         WHERE ip_address IS NOT NULL AND created_at >= ?`,
		since.UnixMilli(),
	).Scan(&st.ActiveUsers)
	if err != nil {
		return st, fmt.Errorf("active users: %w", err)
	}
	return st, nil
}

// ─── deep scans ────────────────────────────────────────────────────────

const deepScanColumns = `id, scan_id, provider, external_id, status, attempts, malicious, score,
        screenshot, report_url, created_at, updated_at`

func (s *SQLiteStore) SaveDeepScan(ctx context.Context, d *model.DeepScan) error {
	if d == nil || d.ScanID == "" || d.ExternalID == "" {
		return fmt.Errorf("save deep scan: %w", ErrInvalid)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.UpdatedAt = d.CreatedAt
	if d.Status == "" {
		d.Status = model.DeepScanPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deep_scans (`+deepScanColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ScanID, d.Provider, d.ExternalID, string(d.Status), d.Attempts, boolInt(d.Malicious), d.Score,
		nullString(d.Screenshot), nullString(d.ReportURL), d.CreatedAt.UnixMilli(), d.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert deep scan: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateDeepScan(ctx context.Context, d *model.DeepScan) error {
	if d == nil {
		return fmt.Errorf("update deep scan: %w", ErrInvalid)
	}
	d.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE deep_scans
         SET status = ?, attempts = ?, malicious = ?, score = ?, screenshot = ?, report_url = ?, updated_at = ?
         WHERE scan_id = ?`,
		string(d.Status), d.Attempts, boolInt(d.Malicious), d.Score,
		nullString(d.Screenshot), nullString(d.ReportURL), d.UpdatedAt.UnixMilli(), d.ScanID,
	)
	if err != nil {
		return fmt.Errorf("update deep scan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func deepScanRow(row rowScanner) (*model.DeepScan, error) {
	var (
		d                    model.DeepScan
		status               string
		malicious            int
		screenshot, report   sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&d.ID, &d.ScanID, &d.Provider, &d.ExternalID, &status, &d.Attempts, &malicious, &d.Score,
		&screenshot, &report, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.Status = model.DeepScanStatus(status)
	d.Malicious = malicious != 0
	d.Screenshot, d.ReportURL = screenshot.String, report.String
	d.CreatedAt = time.UnixMilli(createdAt).UTC()
	d.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &d, nil
}

func (s *SQLiteStore) GetDeepScan(ctx context.Context, scanID string) (*model.DeepScan, error) {
	d, err := deepScanRow(s.db.QueryRowContext(ctx,
		`SELECT `+deepScanColumns+` FROM deep_scans WHERE scan_id = ? LIMIT 1`, scanID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *SQLiteStore) PendingDeepScans(ctx context.Context, limit int) ([]*model.DeepScan, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deepScanColumns+` FROM deep_scans
         WHERE status = ?
         ORDER BY created_at ASC LIMIT ?`,
		string(model.DeepScanPending), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending deep scans: %w", err)
	}
	defer rows.Close()

	var out []*model.DeepScan
	for rows.Next() {
		d, err := deepScanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ─── retention ─────────────────────────────────────────────────────────

func (s *SQLiteStore) PurgeBefore(ctx context.Context, t time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback()

	cutoff := t.UnixMilli()
	if _, err := tx.ExecContext(ctx, `DELETE FROM deep_scans WHERE created_at < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("purge deep scans: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM api_usage WHERE created_at < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("purge usage: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM scan_results WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge scans: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purge: %w", err)
	}
	return n, nil
}

// ─── helpers ───────────────────────────────────────────────────────────

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableJSON(v any, isNull bool) (sql.NullString, error) {
	if isNull {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilChecks(c []model.SecurityCheck) []model.SecurityCheck {
	if c == nil {
		return []model.SecurityCheck{}
	}
	return c
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
