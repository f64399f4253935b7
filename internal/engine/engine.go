// Package engine aggregates provider signals and offline heuristics into a
// single explainable ScanResult.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/raysh454/trygglink/internal/heuristics"
	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/model"
	"github.com/raysh454/trygglink/internal/provider"
)

// Reasons and check details shared by both scan paths.
const (
	ReasonNoThreats        = "No security threats detected"
	ReasonAnalysisFailed   = "URL analysis failed"
	ReasonEnhancedWeights  = "Enhanced heuristic analysis applied due to external service limitations"
	ReasonFileUnavailable  = "File reputation service unavailable - basic analysis only"
	CheckURLAnalysis       = "URL Analysis"
	CheckHeuristicAnalysis = "Heuristic Analysis"

	// MetaDeepScanID holds the sandbox submission id when it arrived in time.
	MetaDeepScanID = "urlscanUuid"

	detailAnalysisFailed  = "Analysis failed"
	detailUnavailable     = "Service unavailable"
	detailMissingKey      = "Service unavailable - API key missing"
	detailWhoisFailed     = "WHOIS lookup failed"
	detailNoPatterns      = "No suspicious patterns found"
	detailEnhancedSuffix  = " (enhanced weighting applied)"
	metadataError         = "error"
	metadataExternalAPIOK = "externalApiWorking"
)

// Engine is stateless across requests; it is safe for concurrent use.
type Engine struct {
	cfg       Config
	analyzer  *heuristics.Analyzer
	providers map[provider.Kind][]provider.Provider
	resolver  provider.HostResolver
	logger    logging.Logger
	metrics   *metrics

	now   func() time.Time
	newID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMeter records engine metrics on meter instead of the global provider.
func WithMeter(meter metric.Meter) Option {
	return func(e *Engine) { e.metrics = newMetrics(meter) }
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides result id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New builds an Engine. Providers are grouped by Kind and keep their
// registration order within a kind. resolver may be nil.
func New(cfg Config, providers []provider.Provider, resolver provider.HostResolver, logger logging.Logger, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:       cfg,
		analyzer:  heuristics.New(cfg.Heuristics),
		providers: make(map[provider.Kind][]provider.Provider),
		resolver:  resolver,
		logger:    logger.With(logging.Field{Key: "component", Value: "engine"}),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		e.providers[p.Kind()] = append(e.providers[p.Kind()], p)
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = newMetrics(nil)
	}
	return e
}

// Providers returns the registered providers of kind k.
func (e *Engine) Providers(k provider.Kind) []provider.Provider {
	return append([]provider.Provider(nil), e.providers[k]...)
}

// urlKinds is the order provider checks appear in a URL result.
var urlKinds = []provider.Kind{
	provider.KindBlocklist,
	provider.KindReputation,
	provider.KindWhois,
	provider.KindContent,
}

// authoritative returns the URL-pipeline providers whose answers decide
// whether heuristics are weighted up, in check order.
func (e *Engine) authoritative() []provider.Provider {
	var out []provider.Provider
	for _, k := range urlKinds {
		if k.Authoritative() {
			out = append(out, e.providers[k]...)
		}
	}
	return out
}

// outcome is one provider call as seen by the aggregation step.
type outcome struct {
	provider provider.Provider
	signal   provider.Signal
	err      error
}

func (o outcome) available() bool { return o.err == nil && o.signal.Available }

func (e *Engine) call(ctx context.Context, p provider.Provider, in provider.Input) outcome {
	start := time.Now()
	sig, err := provider.SafeCheck(ctx, p, in, e.cfg.ProviderTimeout)

	result := "clean"
	switch {
	case err != nil:
		result = "unavailable"
		e.logger.Warn("provider unavailable",
			logging.Field{Key: "provider", Value: p.Name()},
			logging.Err(err))
	case !sig.Available:
		result = "unavailable"
	case sig.Positive:
		result = "positive"
	}
	e.metrics.recordProvider(ctx, p.Name(), result, time.Since(start))
	return outcome{provider: p, signal: sig, err: err}
}

// fanOut calls every provider concurrently and returns outcomes in input order.
func (e *Engine) fanOut(ctx context.Context, ps []provider.Provider, in provider.Input) []outcome {
	out := make([]outcome, len(ps))
	var wg sync.WaitGroup
	for i, p := range ps {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			out[i] = e.call(ctx, p, in)
		}(i, p)
	}
	wg.Wait()
	return out
}

func unavailableDetail(err error) string {
	if errors.Is(err, provider.ErrNoCredential) {
		return detailMissingKey
	}
	return detailUnavailable
}

// verdictFor applies the crisp thresholds to an already clamped score.
func (e *Engine) verdictFor(score int) model.Verdict {
	switch {
	case score >= e.cfg.MaliciousThreshold:
		return model.VerdictMalicious
	case score >= e.cfg.SuspiciousThreshold:
		return model.VerdictSuspicious
	default:
		return model.VerdictSafe
	}
}

func clamp(score int) int {
	return max(0, min(100, score))
}

// scan accumulates one request's score, reasons and checks.
type scan struct {
	score   int
	reasons []string
	checks  []model.SecurityCheck
}

func (s *scan) add(points int, reason string) {
	s.score += points
	if reason != "" {
		s.reasons = append(s.reasons, reason)
	}
}

func (s *scan) check(name string, status model.CheckStatus, details string) {
	s.checks = append(s.checks, model.SecurityCheck{Name: name, Status: status, Details: details})
}

func (s *scan) finalReasons() []string {
	if len(s.reasons) == 0 {
		return []string{ReasonNoThreats}
	}
	return s.reasons
}

// parseTarget accepts absolute URLs with a host.
func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("url %q is not absolute", raw)
	}
	return u, nil
}

// CheckURLSafety scores rawURL. It always returns a well-formed result;
// a failure anywhere in the pipeline yields the fixed degraded result.
func (e *Engine) CheckURLSafety(ctx context.Context, rawURL string) (res *model.ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("url pipeline panic",
				logging.Field{Key: "url", Value: rawURL},
				logging.Field{Key: "panic", Value: fmt.Sprint(r)})
			res = e.degradedURL(rawURL, fmt.Errorf("panic: %v", r))
		}
		e.metrics.recordScan(ctx, string(res.ScanType), string(res.Verdict))
	}()

	u, err := parseTarget(rawURL)
	if err != nil {
		e.logger.Info("url analysis failed", logging.Field{Key: "url", Value: rawURL}, logging.Err(err))
		return e.degradedURL(rawURL, err)
	}
	return e.checkURL(ctx, rawURL, u)
}

func (e *Engine) checkURL(ctx context.Context, rawURL string, u *url.URL) *model.ScanResult {
	host := strings.ToLower(u.Hostname())
	in := provider.Input{URL: rawURL, Host: host}
	metadata := map[string]any{}

	deepScan := e.submitDeepScan(ctx, in)

	authoritative := e.authoritative()
	whois := e.providers[provider.KindWhois]
	content := e.providers[provider.KindContent]

	var (
		authOut, whoisOut, contentOut []outcome
		resolvedIP                    string
		wg                            sync.WaitGroup
	)
	wg.Add(3)
	go func() { defer wg.Done(); authOut = e.fanOut(ctx, authoritative, in) }()
	go func() { defer wg.Done(); whoisOut = e.fanOut(ctx, whois, in) }()
	go func() { defer wg.Done(); contentOut = e.fanOut(ctx, content, in) }()
	if e.resolver != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.logger.Warn("resolver panic", logging.Field{Key: "panic", Value: fmt.Sprint(r)})
				}
			}()
			rctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
			defer cancel()
			if ip, err := e.resolver.LookupIPv4(rctx, host); err == nil {
				resolvedIP = ip
			} else {
				e.logger.Debug("resolve failed", logging.Field{Key: "host", Value: host}, logging.Err(err))
			}
		}()
	}
	wg.Wait()

	var s scan
	info := model.NewDomainInfo()
	if resolvedIP != "" {
		info.IP = resolvedIP
	}

	// Blocklist, then reputation.
	externalAPIWorking := false
	for _, o := range authOut {
		name := o.provider.Name()
		switch {
		case !o.available():
			s.check(name, model.StatusError, unavailableDetail(o.err))
		case o.signal.Positive:
			externalAPIWorking = true
			s.add(o.signal.Contribution, fmt.Sprintf("Flagged by %s: %s", name, o.signal.Detail))
			s.check(name, model.StatusMalicious, o.signal.Detail)
		default:
			externalAPIWorking = true
			s.check(name, model.StatusClean, o.signal.Detail)
		}
		if o.available() {
			if o.signal.IP != "" && info.IP == model.UnknownIP {
				info.IP = o.signal.IP
			}
			if o.signal.Country != "" && info.Country == model.UnknownValue {
				info.Country = o.signal.Country
			}
		}
	}
	metadata[metadataExternalAPIOK] = externalAPIWorking

	// Domain age.
	haveDomainInfo := false
	for _, o := range whoisOut {
		name := o.provider.Name()
		if !o.available() || o.signal.Domain == nil {
			s.check(name, model.StatusError, detailWhoisFailed)
			continue
		}
		facts := o.signal.Domain
		age := e.analyzer.AnalyzeDomainAge(facts.AgeDays)
		s.add(age.Score, age.Flag)
		status := model.StatusClean
		if age.Score > e.cfg.DomainAgeSuspiciousAbove {
			status = model.StatusSuspicious
		}
		s.check(name, status, o.signal.Detail)

		haveDomainInfo = true
		if facts.Registrar != "" {
			info.Registrar = facts.Registrar
		}
		if facts.Country != "" {
			info.Country = facts.Country
		}
		if facts.AgeDays != nil {
			info.AgeDays = *facts.AgeDays
		}
	}

	// Heuristics on the raw URL.
	h := e.analyzer.AnalyzeURL(rawURL)
	weighted := h.Score
	if !externalAPIWorking {
		weighted = int(math.Round(float64(h.Score) * e.cfg.AdaptiveWeight))
	}
	s.add(weighted, "")
	s.reasons = append(s.reasons, h.Flags...)
	if !externalAPIWorking && len(h.Flags) > 0 {
		s.reasons = append(s.reasons, ReasonEnhancedWeights)
	}
	if len(h.Flags) > 0 {
		status := model.StatusClean
		if weighted > e.cfg.HeuristicSuspiciousAbove {
			status = model.StatusSuspicious
		}
		detail := fmt.Sprintf("%d suspicious patterns detected", len(h.Flags))
		if !externalAPIWorking {
			detail += detailEnhancedSuffix
		}
		s.check(CheckHeuristicAnalysis, status, detail)
	} else {
		s.check(CheckHeuristicAnalysis, model.StatusClean, detailNoPatterns)
	}

	// Landing-page content, when enabled.
	for _, o := range contentOut {
		name := o.provider.Name()
		switch {
		case !o.available():
			s.check(name, model.StatusError, unavailableDetail(o.err))
		case o.signal.Positive:
			s.add(o.signal.Contribution, fmt.Sprintf("Flagged by %s: %s", name, o.signal.Detail))
			s.check(name, model.StatusSuspicious, o.signal.Detail)
		default:
			s.check(name, model.StatusClean, o.signal.Detail)
		}
	}

	if id := deepScan.wait(ctx); id != "" {
		metadata[MetaDeepScanID] = id
	}

	score := clamp(s.score)
	res := &model.ScanResult{
		ID:             e.newID(),
		ScanType:       model.ScanTypeURL,
		URL:            rawURL,
		RiskScore:      score,
		Verdict:        e.verdictFor(score),
		Reasons:        s.finalReasons(),
		SecurityChecks: s.checks,
		Metadata:       metadata,
		CreatedAt:      e.now().UTC(),
	}
	if haveDomainInfo || info.IP != model.UnknownIP {
		res.DomainInfo = info
	}
	return res
}

func (e *Engine) degradedURL(rawURL string, cause error) *model.ScanResult {
	return &model.ScanResult{
		ID:        e.newID(),
		ScanType:  model.ScanTypeURL,
		URL:       rawURL,
		RiskScore: 50,
		Verdict:   model.VerdictSuspicious,
		Reasons:   []string{ReasonAnalysisFailed},
		SecurityChecks: []model.SecurityCheck{
			{Name: CheckURLAnalysis, Status: model.StatusError, Details: detailAnalysisFailed},
		},
		Metadata:  map[string]any{metadataError: cause.Error()},
		CreatedAt: e.now().UTC(),
	}
}
