// Package heuristics scores URLs and domain ages without any network I/O.
package heuristics

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
)

const (
	maxURLLength     = 200
	maxSubdomains    = 3
	maxHostHyphens   = 3
	maxHostDigits    = 4
	invalidURLPoints = 50
	maxScore         = 100

	// FlagInvalidURL is the only flag emitted for unparseable input.
	FlagInvalidURL = "Invalid URL format"
)

var (
	suspiciousCharRe = regexp.MustCompile(`[^\w\-./?=&%#+]`)
	executableRe     = regexp.MustCompile(`(?i)\.(exe|zip|rar|bat|cmd|scr)$`)
)

// Config tunes the analyzer. Zero values fall back to the defaults.
type Config struct {
	// Weights overrides the points of individual rules.
	Weights map[Rule]int `yaml:"weights"`

	// AgeBands replaces the domain-age bands. Must be sorted by MaxDays.
	AgeBands []AgeBand `yaml:"age_bands"`
}

// Analyzer evaluates the URL rule table and the domain-age bands.
type Analyzer struct {
	weights  map[Rule]int
	ageBands []AgeBand
}

// New builds an Analyzer from cfg.
func New(cfg Config) *Analyzer {
	w := make(map[Rule]int, len(DefaultWeights))
	for r, pts := range DefaultWeights {
		w[r] = pts
	}
	for r, pts := range cfg.Weights {
		if pts < 0 {
			pts = 0
		}
		w[r] = pts
	}
	bands := cfg.AgeBands
	if len(bands) == 0 {
		bands = DefaultAgeBands
	}
	return &Analyzer{weights: w, ageBands: bands}
}

var defaultAnalyzer = New(Config{})

// Result is the outcome of URL analysis.
type Result struct {
	Score int      `json:"score"`
	Flags []string `json:"flags"`
	Rules []Rule   `json:"rules,omitempty"`
}

// AnalyzeURL runs the default rule table against raw.
func AnalyzeURL(raw string) Result {
	return defaultAnalyzer.AnalyzeURL(raw)
}

// AnalyzeURL evaluates every rule in Order and sums the triggered weights.
// It never fails: unparseable input scores a fixed penalty.
func (a *Analyzer) AnalyzeURL(raw string) Result {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return Result{Score: invalidURLPoints, Flags: []string{FlagInvalidURL}}
	}

	host := strings.ToLower(u.Hostname())
	target := urlTarget{raw: raw, u: u, host: host, unicodeHost: toUnicode(host)}

	var res Result
	for _, r := range Order {
		if !target.matches(r) {
			continue
		}
		res.Score += a.weights[r]
		res.Flags = append(res.Flags, Describe(r))
		res.Rules = append(res.Rules, r)
	}
	if res.Score > maxScore {
		res.Score = maxScore
	}
	return res
}

type urlTarget struct {
	raw         string
	u           *url.URL
	host        string
	unicodeHost string
}

func (t urlTarget) matches(r Rule) bool {
	switch r {
	case RuleIPHost:
		addr, err := netip.ParseAddr(t.host)
		return err == nil && addr.Is4()
	case RuleLongURL:
		return len(t.raw) > maxURLLength
	case RuleAtSymbol:
		return strings.Contains(t.raw, "@")
	case RuleManySubdomains:
		return len(strings.Split(t.host, "."))-2 > maxSubdomains
	case RuleSuspiciousChars:
		// The scheme separator itself is not suspicious.
		rest := t.raw
		if i := strings.Index(rest, ":"); i >= 0 {
			rest = rest[i+1:]
		}
		return suspiciousCharRe.MatchString(rest)
	case RuleNoHTTPS:
		return !strings.EqualFold(t.u.Scheme, "https")
	case RuleSuspiciousTLD:
		return hasAnySuffix(t.host, suspiciousTLDs)
	case RuleSecurityKeywords:
		return containsAny(t.host, securityKeywords)
	case RuleHomograph:
		return hasNonLatinLetters(t.host) || hasNonLatinLetters(t.unicodeHost)
	case RuleManyHyphens:
		return strings.Count(t.host, "-") > maxHostHyphens
	case RuleManyDigits:
		return countDigits(t.host) > maxHostDigits
	case RuleShortener:
		return isShortener(t.host)
	case RuleExecutable:
		return executableRe.MatchString(t.pathAndQuery())
	case RuleLoginPath:
		return containsAny(strings.ToLower(t.pathAndQuery()), loginKeywords)
	default:
		return false
	}
}

func (t urlTarget) pathAndQuery() string {
	p := t.u.EscapedPath()
	if t.u.RawQuery != "" {
		p += "?" + t.u.RawQuery
	}
	return p
}

// toUnicode decodes punycode labels so homographs hidden behind xn-- are visible.
func toUnicode(host string) string {
	if !strings.Contains(host, "xn--") {
		return host
	}
	uni, err := idna.Punycode.ToUnicode(host)
	if err != nil {
		return host
	}
	return uni
}

func hasNonLatinLetters(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) || unicode.Is(unicode.Greek, r) {
			return true
		}
	}
	return false
}

func isShortener(host string) bool {
	for _, s := range shorteners {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
