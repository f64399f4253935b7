// Package resolver resolves hostnames to IPv4 addresses for reputation lookups.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/miekg/dns"

	"github.com/raysh454/trygglink/internal/logging"
)

// ErrNoAnswer is returned when the name has no A record.
var ErrNoAnswer = errors.New("no A record")

// Config controls the DNS client and the answer cache.
type Config struct {
	// Nameserver is host:port. Empty reads /etc/resolv.conf, then falls back
	// to the system resolver.
	Nameserver string        `yaml:"nameserver"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cache_size"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// Resolver looks up A records with a small TTL-bounded cache.
type Resolver struct {
	client     *dns.Client
	nameserver string
	cache      *expirable.LRU[string, string]
	logger     logging.Logger
}

// New builds a Resolver. Zero config values get defaults.
func New(cfg Config, logger logging.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	ns := cfg.Nameserver
	if ns == "" {
		if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
			ns = net.JoinHostPort(conf.Servers[0], conf.Port)
		}
	}

	return &Resolver{
		client: &dns.Client{
			Net:     "udp",
			Timeout: cfg.Timeout,
		},
		nameserver: ns,
		cache:      expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:     logger.With(logging.Field{Key: "component", Value: "resolver"}),
	}
}

// LookupIPv4 returns the first IPv4 address for host. IP literals are returned as-is.
func (r *Resolver) LookupIPv4(ctx context.Context, host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return "", fmt.Errorf("resolve: empty host")
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.String(), nil
	}
	if ip, ok := r.cache.Get(host); ok {
		return ip, nil
	}

	ip, err := r.lookup(ctx, host)
	if err != nil {
		return "", err
	}
	r.cache.Add(host, ip)
	return ip, nil
}

func (r *Resolver) lookup(ctx context.Context, host string) (string, error) {
	if r.nameserver == "" {
		addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", host, err)
		}
		if len(addrs) == 0 {
			return "", fmt.Errorf("resolve %s: %w", host, ErrNoAnswer)
		}
		return addrs[0].Unmap().String(), nil
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	resp, rtt, err := r.client.ExchangeContext(ctx, msg, r.nameserver)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	r.logger.Debug("dns exchange",
		logging.Field{Key: "host", Value: host},
		logging.Field{Key: "rtt", Value: rtt.String()},
		logging.Field{Key: "rcode", Value: dns.RcodeToString[resp.Rcode]})

	for _, ans := range resp.Answer {
		if a, ok := ans.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", fmt.Errorf("resolve %s: %w", host, ErrNoAnswer)
}

// Len returns the number of cached answers.
func (r *Resolver) Len() int {
	return r.cache.Len()
}
