package model

import "time"

// APIUsage records one admitted API request.
type APIUsage struct {
	ID           string    `json:"id"`
	Endpoint     string    `json:"endpoint"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	RequestCount int       `json:"requestCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UsageStats is the aggregate view served to the admin dashboard.
type UsageStats struct {
	TotalScans     int     `json:"totalScans"`
	MaliciousCount int     `json:"maliciousCount"`
	ErrorRate      float64 `json:"errorRate"`
	ActiveUsers    int     `json:"activeUsers"`
}

// DeepScanStatus tracks a background sandbox submission.
type DeepScanStatus string

const (
	DeepScanPending DeepScanStatus = "pending"
	DeepScanDone    DeepScanStatus = "done"
	DeepScanExpired DeepScanStatus = "expired"
)

// DeepScan is the caller-side record of a submitted sandbox scan.
type DeepScan struct {
	ID         string         `json:"id"`
	ScanID     string         `json:"scanId"`
	Provider   string         `json:"provider"`
	ExternalID string         `json:"externalId"`
	Status     DeepScanStatus `json:"status"`
	Attempts   int            `json:"attempts"`
	Malicious  bool           `json:"malicious"`
	Score      int            `json:"score"`
	Screenshot string         `json:"screenshot,omitempty"`
	ReportURL  string         `json:"reportUrl,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}
