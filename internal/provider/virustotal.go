package provider

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/raysh454/trygglink/internal/webclient"
)

const defaultVirusTotalURL = "https://www.virustotal.com"

var sha256Re = regexp.MustCompile(`^[a-f0-9]{64}$`)

// VirusTotalConfig configures the VirusTotal v3 file lookup.
type VirusTotalConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VirusTotal is a file-reputation provider keyed by SHA-256.
type VirusTotal struct {
	cfg VirusTotalConfig
	wc  webclient.WebClient
}

func NewVirusTotal(cfg VirusTotalConfig, wc webclient.WebClient) *VirusTotal {
	cfg.BaseURL = baseURL(cfg.BaseURL, defaultVirusTotalURL)
	return &VirusTotal{cfg: cfg, wc: wc}
}

func (v *VirusTotal) Name() string { return "VirusTotal" }

func (v *VirusTotal) Kind() Kind { return KindFileReputation }

type vtFileResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Undetected int `json:"undetected"`
				Harmless   int `json:"harmless"`
				Timeout    int `json:"timeout"`
			} `json:"last_analysis_stats"`
			LastAnalysisResults map[string]struct {
				Category string `json:"category"`
			} `json:"last_analysis_results"`
		} `json:"attributes"`
	} `json:"data"`
}

func (v *VirusTotal) Check(ctx context.Context, in Input) (Signal, error) {
	if v.cfg.APIKey == "" {
		return Signal{}, fmt.Errorf("virustotal: %w", ErrNoCredential)
	}
	hash := strings.ToLower(in.FileHash)
	if !sha256Re.MatchString(hash) {
		return Signal{}, fmt.Errorf("virustotal: %w", ErrUnsupportedInput)
	}

	headers := http.Header{}
	headers.Set("x-apikey", v.cfg.APIKey)
	req := &webclient.Request{Method: http.MethodGet, URL: v.cfg.BaseURL + "/api/v3/files/" + hash, Headers: headers}

	var out vtFileResponse
	status, err := fetchJSON(ctx, v.wc, req, &out)
	if status == http.StatusNotFound {
		return Signal{
			Available: true,
			Detail:    "File not found in reputation database",
			File:      &FileFacts{Known: false},
		}, nil
	}
	if err != nil {
		return Signal{}, fmt.Errorf("virustotal: request failed: %w", err)
	}

	stats := out.Data.Attributes.LastAnalysisStats
	total := len(out.Data.Attributes.LastAnalysisResults)
	if total == 0 {
		total = stats.Malicious + stats.Suspicious + stats.Undetected + stats.Harmless + stats.Timeout
	}
	facts := &FileFacts{Known: true, Malicious: stats.Malicious, Suspicious: stats.Suspicious, Total: total}

	// Vendor counts are scored by the engine; the signal carries no points.
	sig := Signal{Available: true, File: facts, Detail: "No threats detected"}
	switch {
	case facts.Malicious > 0:
		sig.Positive = true
		sig.Detail = fmt.Sprintf("%d/%d security vendors flagged this file as malicious", facts.Malicious, total)
	case facts.Suspicious > 0:
		sig.Positive = true
		sig.Detail = fmt.Sprintf("%d/%d security vendors flagged this file as suspicious", facts.Suspicious, total)
	}
	return sig, nil
}
