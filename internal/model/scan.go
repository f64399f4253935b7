package model

import (
	"fmt"
	"time"
)

// ScanType distinguishes URL scans from file scans.
type ScanType string

const (
	ScanTypeURL  ScanType = "url"
	ScanTypeFile ScanType = "file"
)

// Verdict is the final tri-state classification of a scan.
type Verdict string

const (
	VerdictSafe       Verdict = "safe"
	VerdictSuspicious Verdict = "suspicious"
	VerdictMalicious  Verdict = "malicious"
)

// CheckStatus is the outcome of one SecurityCheck.
type CheckStatus string

const (
	StatusClean      CheckStatus = "clean"
	StatusSuspicious CheckStatus = "suspicious"
	StatusMalicious  CheckStatus = "malicious"
	StatusError      CheckStatus = "error"
)

// SecurityCheck is one evaluation unit produced by a provider or analyzer.
type SecurityCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Details string      `json:"details"`
}

// DomainInfo describes the scanned host. Unknown fields hold sentinels.
type DomainInfo struct {
	Registrar string `json:"registrar"`
	IP        string `json:"ip"`
	Country   string `json:"country"`
	AgeDays   int    `json:"age"`
}

// Sentinels used by DomainInfo when a value could not be determined.
const (
	UnknownValue = "Unknown"
	UnknownIP    = "0.0.0.0"
)

// NewDomainInfo returns a DomainInfo with every field set to its sentinel.
func NewDomainInfo() *DomainInfo {
	return &DomainInfo{Registrar: UnknownValue, IP: UnknownIP, Country: UnknownValue}
}

// ScanResult is the verdict record produced once per request.
type ScanResult struct {
	ID       string   `json:"id"`
	ScanType ScanType `json:"scanType"`

	// Input reference: URL for URL scans, name+hash(+size) for file scans.
	URL      string `json:"url,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileHash string `json:"fileHash,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`

	RiskScore      int             `json:"riskScore"`
	Verdict        Verdict         `json:"verdict"`
	Reasons        []string        `json:"reasons"`
	SecurityChecks []SecurityCheck `json:"securityChecks"`
	DomainInfo     *DomainInfo     `json:"domainInfo,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// InputRef returns the cache key the result is stored under.
func (r *ScanResult) InputRef() string {
	if r.ScanType == ScanTypeFile {
		return r.FileHash
	}
	return r.URL
}

// HasErrorCheck reports whether any provider failed while producing r.
func (r *ScanResult) HasErrorCheck() bool {
	for _, c := range r.SecurityChecks {
		if c.Status == StatusError {
			return true
		}
	}
	return false
}

// Validate checks the invariants every persisted result must hold.
func (r *ScanResult) Validate() error {
	if r.RiskScore < 0 || r.RiskScore > 100 {
		return fmt.Errorf("risk score %d out of range", r.RiskScore)
	}
	switch r.Verdict {
	case VerdictSafe, VerdictSuspicious, VerdictMalicious:
	default:
		return fmt.Errorf("unknown verdict %q", r.Verdict)
	}
	switch r.ScanType {
	case ScanTypeURL:
		if r.URL == "" {
			return fmt.Errorf("url scan without url")
		}
	case ScanTypeFile:
		if r.FileHash == "" {
			return fmt.Errorf("file scan without hash")
		}
	default:
		return fmt.Errorf("unknown scan type %q", r.ScanType)
	}
	return nil
}
