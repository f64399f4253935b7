package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/trygglink/internal/webclient"
)

// PageContentConfig configures landing-page inspection.
type PageContentConfig struct {
	// Render asks the webclient backend to execute scripts before parsing.
	Render bool `yaml:"render"`

	CrossDomainFormPenalty  int `yaml:"cross_domain_form_penalty"`
	InsecurePasswordPenalty int `yaml:"insecure_password_penalty"`
	MetaRefreshPenalty      int `yaml:"meta_refresh_penalty"`
}

// PageContent fetches the landing page and looks for credential-harvesting
// patterns in its markup.
type PageContent struct {
	cfg PageContentConfig
	wc  webclient.WebClient
}

func NewPageContent(cfg PageContentConfig, wc webclient.WebClient) *PageContent {
	if cfg.CrossDomainFormPenalty == 0 {
		cfg.CrossDomainFormPenalty = 25
	}
	if cfg.InsecurePasswordPenalty == 0 {
		cfg.InsecurePasswordPenalty = 15
	}
	if cfg.MetaRefreshPenalty == 0 {
		cfg.MetaRefreshPenalty = 10
	}
	return &PageContent{cfg: cfg, wc: wc}
}

func (p *PageContent) Name() string { return "Page Content" }

func (p *PageContent) Kind() Kind { return KindContent }

// Finding is one suspicious pattern found in a page.
type Finding struct {
	Description string
	Points      int
}

func (p *PageContent) Check(ctx context.Context, in Input) (Signal, error) {
	if in.URL == "" {
		return Signal{}, fmt.Errorf("pagecontent: %w", ErrUnsupportedInput)
	}
	req := &webclient.Request{Method: http.MethodGet, URL: in.URL}
	if p.cfg.Render {
		req.Options = map[string]string{"render": "true"}
	}

	resp, err := p.wc.Do(ctx, req)
	if err != nil {
		return Signal{}, fmt.Errorf("pagecontent: fetch failed: %w", err)
	}
	if !resp.OK() {
		return Signal{}, fmt.Errorf("pagecontent: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	findings, err := p.Inspect(in.URL, resp.Body)
	if err != nil {
		return Signal{}, fmt.Errorf("pagecontent: %w", err)
	}
	if len(findings) == 0 {
		return Signal{Available: true, Detail: "No suspicious page content"}, nil
	}

	sig := Signal{Available: true, Positive: true}
	descs := make([]string, 0, len(findings))
	for _, f := range findings {
		sig.Contribution += f.Points
		descs = append(descs, f.Description)
	}
	sig.Contribution = min(sig.Contribution, 100)
	sig.Detail = strings.Join(descs, "; ")
	return sig, nil
}

// Inspect parses body as HTML served from pageURL and returns its findings.
func (p *PageContent) Inspect(pageURL string, body []byte) ([]Finding, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var findings []Finding
	crossDomain, insecure := false, false

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		if !hasPasswordInput(form) {
			return
		}
		action, _ := form.Attr("action")
		target := base
		if strings.TrimSpace(action) != "" {
			if ref, err := base.Parse(strings.TrimSpace(action)); err == nil {
				target = ref
			}
		}
		if !sameSite(base, target) {
			crossDomain = true
		}
		if !strings.EqualFold(base.Scheme, "https") || !strings.EqualFold(target.Scheme, "https") {
			insecure = true
		}
	})
	if crossDomain {
		findings = append(findings, Finding{"Login form submits to a different domain", p.cfg.CrossDomainFormPenalty})
	}
	if insecure {
		findings = append(findings, Finding{"Password field submitted over plain HTTP", p.cfg.InsecurePasswordPenalty})
	}

	refreshed := false
	doc.Find("meta").Each(func(_ int, meta *goquery.Selection) {
		equiv, _ := meta.Attr("http-equiv")
		if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
			return
		}
		content, _ := meta.Attr("content")
		if dest := refreshTarget(content); dest != "" {
			if ref, err := base.Parse(dest); err == nil && !sameSite(base, ref) {
				refreshed = true
			}
		}
	})
	if refreshed {
		findings = append(findings, Finding{"Page redirects to a different domain via meta refresh", p.cfg.MetaRefreshPenalty})
	}
	return findings, nil
}

func hasPasswordInput(form *goquery.Selection) bool {
	found := false
	form.Find("input").EachWithBreak(func(_ int, in *goquery.Selection) bool {
		t, _ := in.Attr("type")
		found = strings.EqualFold(strings.TrimSpace(t), "password")
		return !found
	})
	return found
}

// refreshTarget extracts the url from a meta refresh value like "0; url=https://x".
func refreshTarget(content string) string {
	_, after, ok := strings.Cut(content, ";")
	if !ok {
		return ""
	}
	after = strings.TrimSpace(after)
	if len(after) < 4 || !strings.EqualFold(after[:4], "url=") {
		return ""
	}
	return strings.Trim(strings.TrimSpace(after[4:]), `'"`)
}

func sameSite(a, b *url.URL) bool {
	if b.Host == "" {
		return true
	}
	return RegistrableDomain(a.Hostname()) == RegistrableDomain(b.Hostname())
}
