package webclient

import "time"

type Client string

const (
	ClientNetHTTP  Client = "nethttp"
	ClientChromedp Client = "chromedp"
)

// Config selects and tunes a WebClient backend.
type Config struct {
	Client Client `yaml:"client"`

	// Timeout bounds a single request for the nethttp backend.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent when the request does not set one.
	UserAgent string `yaml:"user_agent"`

	// MaxBodyBytes caps how much of a response body is read. 0 means 8 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// IdleAfter is how long chromedp waits for network silence after load.
	IdleAfter time.Duration `yaml:"idle_after"`

	// Headful disables headless mode for chromedp; useful when debugging.
	Headful bool `yaml:"headful"`
}

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 8 << 20
	defaultIdleAfter    = 2 * time.Second
	defaultUserAgent    = "trygglink/1.0"
)

func (c Config) withDefaults() Config {
	if c.Client == "" {
		c.Client = ClientNetHTTP
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.IdleAfter <= 0 {
		c.IdleAfter = defaultIdleAfter
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return c
}
