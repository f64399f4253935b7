package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/raysh454/trygglink/internal/webclient"
)

const defaultURLScanURL = "https://urlscan.io"

// ErrScanPending is returned by Result while the sandbox is still working.
var ErrScanPending = errors.New("scan result not ready")

// URLScanConfig configures urlscan.io submissions.
type URLScanConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Visibility string `yaml:"visibility"`
}

// URLScan submits URLs to the urlscan.io sandbox. Check only submits; the
// verdict is fetched later with Result.
type URLScan struct {
	cfg URLScanConfig
	wc  webclient.WebClient
}

func NewURLScan(cfg URLScanConfig, wc webclient.WebClient) *URLScan {
	cfg.BaseURL = baseURL(cfg.BaseURL, defaultURLScanURL)
	if cfg.Visibility == "" {
		cfg.Visibility = "private"
	}
	return &URLScan{cfg: cfg, wc: wc}
}

func (u *URLScan) Name() string { return "urlscan.io" }

func (u *URLScan) Kind() Kind { return KindDeepScan }

type urlscanSubmitResponse struct {
	UUID    string `json:"uuid"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

func (u *URLScan) headers() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("API-Key", u.cfg.APIKey)
	return h
}

func (u *URLScan) Check(ctx context.Context, in Input) (Signal, error) {
	if u.cfg.APIKey == "" {
		return Signal{}, fmt.Errorf("urlscan: %w", ErrNoCredential)
	}
	if in.URL == "" {
		return Signal{}, fmt.Errorf("urlscan: %w", ErrUnsupportedInput)
	}

	payload, err := json.Marshal(map[string]string{"url": in.URL, "visibility": u.cfg.Visibility})
	if err != nil {
		return Signal{}, fmt.Errorf("urlscan: encode request: %w", err)
	}
	req := &webclient.Request{
		Method:  http.MethodPost,
		URL:     u.cfg.BaseURL + "/api/v1/scan/",
		Headers: u.headers(),
		Body:    payload,
	}

	var out urlscanSubmitResponse
	if _, err := fetchJSON(ctx, u.wc, req, &out); err != nil {
		return Signal{}, fmt.Errorf("urlscan: submit failed: %w", err)
	}
	if out.UUID == "" {
		return Signal{}, fmt.Errorf("urlscan: submit returned no uuid: %s", out.Message)
	}
	return Signal{Available: true, ScanID: out.UUID, Detail: out.Message}, nil
}

// DeepScanReport is the summary of a finished sandbox scan.
type DeepScanReport struct {
	Malicious  bool
	Score      int
	Screenshot string
	ReportURL  string
}

type urlscanResultResponse struct {
	Task struct {
		ScreenshotURL string `json:"screenshotURL"`
		ReportURL     string `json:"reportURL"`
	} `json:"task"`
	Verdicts struct {
		Overall struct {
			Score     int  `json:"score"`
			Malicious bool `json:"malicious"`
		} `json:"overall"`
	} `json:"verdicts"`
}

// Result fetches a finished scan. It returns ErrScanPending while the
// sandbox has not published the result yet.
func (u *URLScan) Result(ctx context.Context, id string) (DeepScanReport, error) {
	req := &webclient.Request{
		Method:  http.MethodGet,
		URL:     u.cfg.BaseURL + "/api/v1/result/" + url.PathEscape(id) + "/",
		Headers: u.headers(),
	}

	var out urlscanResultResponse
	status, err := fetchJSON(ctx, u.wc, req, &out)
	if status == http.StatusNotFound {
		return DeepScanReport{}, ErrScanPending
	}
	if err != nil {
		return DeepScanReport{}, fmt.Errorf("urlscan: result failed: %w", err)
	}
	return DeepScanReport{
		Malicious:  out.Verdicts.Overall.Malicious,
		Score:      out.Verdicts.Overall.Score,
		Screenshot: out.Task.ScreenshotURL,
		ReportURL:  out.Task.ReportURL,
	}, nil
}
