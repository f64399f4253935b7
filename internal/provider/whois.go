package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/raysh454/trygglink/internal/webclient"
)

const defaultWhoisURL = "https://api.whoisfreaks.com"

// WhoisConfig configures the WhoisFreaks live lookup.
type WhoisConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	// Now is the clock used to compute domain age.
	Now func() time.Time `yaml:"-"`
}

// Whois looks up registration data for the registrable domain of a host.
type Whois struct {
	cfg WhoisConfig
	wc  webclient.WebClient
}

func NewWhois(cfg WhoisConfig, wc webclient.WebClient) *Whois {
	cfg.BaseURL = baseURL(cfg.BaseURL, defaultWhoisURL)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Whois{cfg: cfg, wc: wc}
}

func (w *Whois) Name() string { return "Domain Age" }

func (w *Whois) Kind() Kind { return KindWhois }

type whoisResponse struct {
	DomainName      string `json:"domain_name"`
	CreateDate      string `json:"create_date"`
	ExpireDate      string `json:"expiry_date"`
	RegistrarName   string `json:"registrar_name"`
	DomainRegistrar struct {
		RegistrarName string `json:"registrar_name"`
	} `json:"domain_registrar"`
	RegistrantContact struct {
		CountryName string `json:"country_name"`
	} `json:"registrant_contact"`
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseWhoisDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RegistrableDomain returns the eTLD+1 of host, or host when it has none.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

func (w *Whois) Check(ctx context.Context, in Input) (Signal, error) {
	if w.cfg.APIKey == "" {
		return Signal{}, fmt.Errorf("whois: %w", ErrNoCredential)
	}
	if in.Host == "" {
		return Signal{}, fmt.Errorf("whois: %w", ErrUnsupportedInput)
	}
	if _, err := netip.ParseAddr(in.Host); err == nil {
		return Signal{}, fmt.Errorf("whois: ip literal %s: %w", in.Host, ErrUnsupportedInput)
	}

	q := url.Values{}
	q.Set("apiKey", w.cfg.APIKey)
	q.Set("whois", "live")
	q.Set("domainName", RegistrableDomain(in.Host))
	req := &webclient.Request{Method: http.MethodGet, URL: w.cfg.BaseURL + "/v1.0/whois?" + q.Encode()}

	var out whoisResponse
	if _, err := fetchJSON(ctx, w.wc, req, &out); err != nil {
		return Signal{}, fmt.Errorf("whois: request failed: %w", err)
	}

	facts := &DomainFacts{
		Registrar: out.RegistrarName,
		Country:   out.RegistrantContact.CountryName,
	}
	if facts.Registrar == "" {
		facts.Registrar = out.DomainRegistrar.RegistrarName
	}

	detail := "Unknown age"
	if created, ok := parseWhoisDate(out.CreateDate); ok {
		age := int(w.cfg.Now().Sub(created).Hours() / 24)
		facts.CreatedAt = created
		facts.AgeDays = &age
		detail = fmt.Sprintf("%d days old", age)
	}

	return Signal{Available: true, Detail: detail, Domain: facts, Country: facts.Country}, nil
}
