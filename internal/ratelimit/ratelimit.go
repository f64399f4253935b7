// Package ratelimit implements a per-key sliding-window request limiter.
package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Config bounds each key to Limit requests in any Window-long interval.
type Config struct {
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
	MaxKeys int           `yaml:"max_keys"`
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = 10
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = 100_000
	}
	return c
}

// Limiter keeps a log of admitted request times per key. Idle keys expire
// after one window; the least recently active key is evicted past MaxKeys.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	windows *expirable.LRU[string, []time.Time]
	now     func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(cfg Config, opts ...Option) *Limiter {
	cfg = cfg.withDefaults()
	l := &Limiter{
		cfg:     cfg,
		windows: expirable.NewLRU[string, []time.Time](cfg.MaxKeys, nil, cfg.Window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured per-window request count.
func (l *Limiter) Limit() int { return l.cfg.Limit }

// Allow admits one request for key. When denied it reports how long until
// the oldest request leaves the window.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	cutoff := now.Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	log, _ := l.windows.Get(key)
	kept := log[:0]
	for _, t := range log {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.cfg.Limit {
		l.windows.Add(key, kept)
		return false, kept[0].Add(l.cfg.Window).Sub(now)
	}
	l.windows.Add(key, append(kept, now))
	return true, 0
}

// Remaining reports how many requests key may still make in the current window.
func (l *Limiter) Remaining(key string) int {
	cutoff := l.now().Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	log, _ := l.windows.Peek(key)
	n := 0
	for _, t := range log {
		if t.After(cutoff) {
			n++
		}
	}
	return max(0, l.cfg.Limit-n)
}
