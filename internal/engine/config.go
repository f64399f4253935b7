package engine

import (
	"time"

	"github.com/raysh454/trygglink/internal/heuristics"
)

// Config holds the aggregation constants. Start from DefaultConfig.
//
// Weights, thresholds and timeouts fall back to their defaults when zero or
// negative. Scores, cutoffs and vendor counts accept zero as a real setting
// and only fall back when negative.
type Config struct {
	// AdaptiveWeight multiplies the heuristic score when no authoritative
	// provider returned an opinion.
	AdaptiveWeight float64 `yaml:"adaptive_weight"`

	MaliciousThreshold  int `yaml:"malicious_threshold"`
	SuspiciousThreshold int `yaml:"suspicious_threshold"`

	// A Domain Age check above this contribution is marked suspicious.
	DomainAgeSuspiciousAbove int `yaml:"domain_age_suspicious_above"`
	// A Heuristic Analysis check above this weighted score is marked suspicious.
	HeuristicSuspiciousAbove int `yaml:"heuristic_suspicious_above"`

	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	DeepScanGrace   time.Duration `yaml:"deep_scan_grace"`

	// A flagged file scores min(100, FileBaseScore + FilePerVendorPoints*n)
	// and is malicious once more than FileMaliciousVendorThreshold vendors
	// call it malicious.
	FileBaseScore                int `yaml:"file_base_score"`
	FilePerVendorPoints          int `yaml:"file_per_vendor_points"`
	FileMaliciousVendorThreshold int `yaml:"file_malicious_vendor_threshold"`
	FileUnavailableScore         int `yaml:"file_unavailable_score"`
	FileCleanScore               int `yaml:"file_clean_score"`

	Heuristics heuristics.Config `yaml:"heuristics"`
}

// DefaultConfig returns the stock scoring constants.
func DefaultConfig() Config {
	return Config{
		AdaptiveWeight:               1.4,
		MaliciousThreshold:           70,
		SuspiciousThreshold:          30,
		DomainAgeSuspiciousAbove:     20,
		HeuristicSuspiciousAbove:     30,
		ProviderTimeout:              8 * time.Second,
		DeepScanGrace:                1500 * time.Millisecond,
		FileBaseScore:                50,
		FilePerVendorPoints:          5,
		FileMaliciousVendorThreshold: 5,
		FileUnavailableScore:         15,
		FileCleanScore:               5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AdaptiveWeight <= 0 {
		c.AdaptiveWeight = d.AdaptiveWeight
	}
	if c.MaliciousThreshold <= 0 {
		c.MaliciousThreshold = d.MaliciousThreshold
	}
	if c.SuspiciousThreshold <= 0 {
		c.SuspiciousThreshold = d.SuspiciousThreshold
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = d.ProviderTimeout
	}
	if c.DeepScanGrace <= 0 {
		c.DeepScanGrace = d.DeepScanGrace
	}

	orDefault := func(v *int, def int) {
		if *v < 0 {
			*v = def
		}
	}
	orDefault(&c.DomainAgeSuspiciousAbove, d.DomainAgeSuspiciousAbove)
	orDefault(&c.HeuristicSuspiciousAbove, d.HeuristicSuspiciousAbove)
	orDefault(&c.FileBaseScore, d.FileBaseScore)
	orDefault(&c.FilePerVendorPoints, d.FilePerVendorPoints)
	orDefault(&c.FileMaliciousVendorThreshold, d.FileMaliciousVendorThreshold)
	orDefault(&c.FileUnavailableScore, d.FileUnavailableScore)
	orDefault(&c.FileCleanScore, d.FileCleanScore)
	return c
}
