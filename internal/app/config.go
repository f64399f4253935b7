package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/trygglink/internal/engine"
	"github.com/raysh454/trygglink/internal/provider"
	"github.com/raysh454/trygglink/internal/ratelimit"
	"github.com/raysh454/trygglink/internal/resolver"
	"github.com/raysh454/trygglink/internal/webclient"
)

// Config aggregates the configuration of every component.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	HTTP      HTTPConfig       `yaml:"http"`
	Store     StoreConfig      `yaml:"store"`
	Scans     ScanConfig       `yaml:"scans"`
	Jobs      JobsConfig       `yaml:"jobs"`
	Engine    engine.Config    `yaml:"engine"`
	Providers ProvidersConfig  `yaml:"providers"`
	WebClient webclient.Config `yaml:"webclient"`
	Resolver  resolver.Config  `yaml:"resolver"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	// MaxUploadBytes caps the request body of file scans.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// TrustForwardedHeaders keys rate limits and usage on the proxy-supplied
	// client address instead of the socket peer.
	TrustForwardedHeaders bool `yaml:"trust_forwarded_headers"`

	// AllowedOrigins restricts browser origins on the websocket feed.
	AllowedOrigins []string `yaml:"allowed_origins"`

	RateLimit ratelimit.Config `yaml:"rate_limit"`
}

type StoreDriver string

const (
	StoreSQLite StoreDriver = "sqlite"
	StoreMemory StoreDriver = "memory"
)

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver StoreDriver `yaml:"driver"`
	// Path is the SQLite database file. A leading ~ expands to $HOME.
	Path string `yaml:"path"`
}

// ScanConfig tunes the scan service.
type ScanConfig struct {
	// CacheTTL is how long a stored result is served instead of rescanning.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// RequestTimeout bounds one engine call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// JobsConfig configures the background jobs. Schedules use cron syntax,
// including descriptors such as "@every 30s". An empty schedule disables
// the job.
type JobsConfig struct {
	DeepScanSchedule    string `yaml:"deep_scan_schedule"`
	DeepScanBatch       int    `yaml:"deep_scan_batch"`
	DeepScanMaxAttempts int    `yaml:"deep_scan_max_attempts"`

	PurgeSchedule string `yaml:"purge_schedule"`
	RetentionDays int    `yaml:"retention_days"`
}

// ProvidersConfig holds one block per vendor adapter. Adapters without an
// API key stay registered and report themselves unavailable.
type ProvidersConfig struct {
	SafeBrowsing provider.SafeBrowsingConfig `yaml:"safe_browsing"`
	AbuseIPDB    provider.AbuseIPDBConfig    `yaml:"abuseipdb"`
	Whois        provider.WhoisConfig        `yaml:"whois"`
	URLScan      provider.URLScanConfig      `yaml:"urlscan"`
	VirusTotal   provider.VirusTotalConfig   `yaml:"virustotal"`
	PageContent  PageContentConfig           `yaml:"page_content"`
}

// PageContentConfig enables landing-page inspection, which is off by default
// because it fetches the scanned URL.
type PageContentConfig struct {
	Enabled bool `yaml:"enabled"`

	provider.PageContentConfig `yaml:",inline"`
}

// DefaultConfig returns a Config populated with development defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		HTTP: HTTPConfig{
			ListenAddr:     ":8080",
			MaxUploadBytes: 32 << 20,
			RateLimit: ratelimit.Config{
				Limit:  10,
				Window: time.Minute,
			},
		},
		Store: StoreConfig{
			Driver: StoreSQLite,
			Path:   "~/.config/trygglink/trygglink.db",
		},
		Scans: ScanConfig{
			CacheTTL:       24 * time.Hour,
			RequestTimeout: 30 * time.Second,
		},
		Jobs: JobsConfig{
			DeepScanSchedule:    "@every 30s",
			DeepScanBatch:       20,
			DeepScanMaxAttempts: 20,
			PurgeSchedule:       "@daily",
			RetentionDays:       30,
		},
		Engine: engine.DefaultConfig(),
		WebClient: webclient.Config{
			Client:  webclient.ClientNetHTTP,
			Timeout: 10 * time.Second,
		},
	}
}

// envOverrides maps environment variables onto config fields.
var envOverrides = map[string]func(c *Config, v string){
	"GSB_API_KEY":           func(c *Config, v string) { c.Providers.SafeBrowsing.APIKey = v },
	"ABUSEIPDB_API_KEY":     func(c *Config, v string) { c.Providers.AbuseIPDB.APIKey = v },
	"WHOIS_API_KEY":         func(c *Config, v string) { c.Providers.Whois.APIKey = v },
	"URLSCAN_API_KEY":       func(c *Config, v string) { c.Providers.URLScan.APIKey = v },
	"VIRUSTOTAL_API_KEY":    func(c *Config, v string) { c.Providers.VirusTotal.APIKey = v },
	"TRYGGLINK_LISTEN_ADDR": func(c *Config, v string) { c.HTTP.ListenAddr = v },
	"TRYGGLINK_DB_PATH":     func(c *Config, v string) { c.Store.Path = v },
	"TRYGGLINK_LOG_LEVEL":   func(c *Config, v string) { c.LogLevel = v },
}

// LoadConfig reads the YAML file at path over the defaults and applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	return loadConfig(path, os.Getenv)
}

func loadConfig(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	for key, apply := range envOverrides {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			apply(cfg, v)
		}
	}
	return cfg, cfg.Validate()
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store: sqlite driver needs a path")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store: unknown driver %q", c.Store.Driver)
	}
	if c.HTTP.MaxUploadBytes < 0 {
		return fmt.Errorf("http: max_upload_bytes must not be negative")
	}
	if c.Jobs.RetentionDays < 0 {
		return fmt.Errorf("jobs: retention_days must not be negative")
	}
	return nil
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
