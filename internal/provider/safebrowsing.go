package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/raysh454/trygglink/internal/webclient"
)

const defaultSafeBrowsingURL = "https://safebrowsing.googleapis.com"

// SafeBrowsingConfig configures the Google Safe Browsing v4 lookup.
type SafeBrowsingConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	ClientID      string `yaml:"client_id"`
	ClientVersion string `yaml:"client_version"`
	Penalty       int    `yaml:"penalty"`
}

// SafeBrowsing is a blocklist provider backed by threatMatches:find.
type SafeBrowsing struct {
	cfg SafeBrowsingConfig
	wc  webclient.WebClient
}

// NewSafeBrowsing creates the adapter. Zero config values get defaults.
func NewSafeBrowsing(cfg SafeBrowsingConfig, wc webclient.WebClient) *SafeBrowsing {
	cfg.BaseURL = baseURL(cfg.BaseURL, defaultSafeBrowsingURL)
	if cfg.ClientID == "" {
		cfg.ClientID = "trygglink"
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = "1.0.0"
	}
	if cfg.Penalty == 0 {
		cfg.Penalty = 60
	}
	return &SafeBrowsing{cfg: cfg, wc: wc}
}

func (s *SafeBrowsing) Name() string { return "Google Safe Browsing" }

func (s *SafeBrowsing) Kind() Kind { return KindBlocklist }

type sbThreatEntry struct {
	URL string `json:"url"`
}

type sbRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string        `json:"threatTypes"`
		PlatformTypes    []string        `json:"platformTypes"`
		ThreatEntryTypes []string        `json:"threatEntryTypes"`
		ThreatEntries    []sbThreatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type sbResponse struct {
	Matches []struct {
		ThreatType   string `json:"threatType"`
		PlatformType string `json:"platformType"`
	} `json:"matches"`
}

func (s *SafeBrowsing) Check(ctx context.Context, in Input) (Signal, error) {
	if s.cfg.APIKey == "" {
		return Signal{}, fmt.Errorf("safebrowsing: %w", ErrNoCredential)
	}
	if in.URL == "" {
		return Signal{}, fmt.Errorf("safebrowsing: %w", ErrUnsupportedInput)
	}

	var body sbRequest
	body.Client.ClientID = s.cfg.ClientID
	body.Client.ClientVersion = s.cfg.ClientVersion
	body.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"}
	body.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	body.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	body.ThreatInfo.ThreatEntries = []sbThreatEntry{{URL: in.URL}}

	payload, err := json.Marshal(body)
	if err != nil {
		return Signal{}, fmt.Errorf("safebrowsing: encode request: %w", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	req := &webclient.Request{
		Method:  http.MethodPost,
		URL:     s.cfg.BaseURL + "/v4/threatMatches:find?key=" + url.QueryEscape(s.cfg.APIKey),
		Headers: headers,
		Body:    payload,
	}

	var out sbResponse
	if _, err := fetchJSON(ctx, s.wc, req, &out); err != nil {
		return Signal{}, fmt.Errorf("safebrowsing: request failed: %w", err)
	}

	if len(out.Matches) == 0 {
		return Signal{Available: true, Detail: "No threats detected"}, nil
	}
	threat := out.Matches[0].ThreatType
	if threat == "" {
		threat = "Threat detected"
	}
	return Signal{
		Available:    true,
		Positive:     true,
		Contribution: s.cfg.Penalty,
		Detail:       threat,
		ThreatType:   threat,
	}, nil
}
