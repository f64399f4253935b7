package heuristics_test

import (
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/idna"

	"github.com/raysh454/trygglink/internal/heuristics"
)

func indexOf(flags []string, want string) int {
	for i, f := range flags {
		if f == want {
			return i
		}
	}
	return -1
}

// ─── AnalyzeURL ─────────────────────────────────────────────────────────

func TestAnalyzeURL_CleanHTTPSDomain(t *testing.T) {
	t.Parallel()
	res := heuristics.AnalyzeURL("https://example.com")
	if res.Score != 0 || len(res.Flags) != 0 {
		t.Fatalf("expected clean result, got %+v", res)
	}
}

func TestAnalyzeURL_InvalidInput(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"not a url", "", "://missing-scheme", "https://"} {
		res := heuristics.AnalyzeURL(raw)
		if res.Score != 50 || !reflect.DeepEqual(res.Flags, []string{heuristics.FlagInvalidURL}) {
			t.Errorf("AnalyzeURL(%q) = %+v, want invalid-format penalty", raw, res)
		}
	}
}

func TestAnalyzeURL_IPAndExecutableOrdering(t *testing.T) {
	t.Parallel()
	res := heuristics.AnalyzeURL("http://192.168.1.1/evil.exe")

	want := []string{
		"Uses IP address instead of domain name",
		"Not using HTTPS",
		"Domain contains excessive numbers",
		"URL leads to executable file download",
	}
	if !reflect.DeepEqual(res.Flags, want) {
		t.Fatalf("flags = %v, want %v", res.Flags, want)
	}
	if res.Score != 30+15+10+30 {
		t.Errorf("score = %d, want 85", res.Score)
	}
	if indexOf(res.Flags, want[0]) > indexOf(res.Flags, want[3]) {
		t.Errorf("ip flag must precede executable flag")
	}
}

func TestAnalyzeURL_OrderIsStableAcrossInputs(t *testing.T) {
	t.Parallel()
	a := heuristics.AnalyzeURL("http://10.0.0.1/setup.zip")
	b := heuristics.AnalyzeURL("http://172.16.5.4/payload.scr?x=1.exe")
	if !reflect.DeepEqual(a.Rules, b.Rules) {
		t.Fatalf("same rule set should produce same order: %v vs %v", a.Rules, b.Rules)
	}
}

func TestAnalyzeURL_IndividualRules(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		url   string
		flag  string
		score int
	}{
		{"long url", "https://example.com/" + strings.Repeat("a", 200), "Unusually long URL", 20},
		{"subdomains", "https://a.b.c.d.example.com", "Excessive number of subdomains", 15},
		{"plain http", "http://example.com", "Not using HTTPS", 15},
		{"shortener", "https://bit.ly/abc", "URL shortener detected - cannot verify final destination", 15},
		{"hyphens", "https://a-b-c-d-e.com", "Domain contains excessive hyphens", 10},
		{"login path", "https://example.com/signin", "URL contains login/password related path", 5},
		{"suspicious chars", "https://example.com/a!b", "Contains suspicious characters", 10},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := heuristics.AnalyzeURL(tc.url)
			if !reflect.DeepEqual(res.Flags, []string{tc.flag}) {
				t.Fatalf("flags = %v, want [%s]", res.Flags, tc.flag)
			}
			if res.Score != tc.score {
				t.Errorf("score = %d, want %d", res.Score, tc.score)
			}
		})
	}
}

func TestAnalyzeURL_PhishingShapedDomain(t *testing.T) {
	t.Parallel()
	res := heuristics.AnalyzeURL("https://secure-login.tk/account")
	want := []string{
		"Uses suspicious top-level domain",
		"Domain contains suspicious security-related keywords",
		"URL contains login/password related path",
	}
	if !reflect.DeepEqual(res.Flags, want) {
		t.Fatalf("flags = %v, want %v", res.Flags, want)
	}
	if res.Score != 45 {
		t.Errorf("score = %d, want 45", res.Score)
	}
}

func TestAnalyzeURL_AtSymbolAlsoCountsAsSuspiciousChar(t *testing.T) {
	t.Parallel()
	res := heuristics.AnalyzeURL("https://user@example.com")
	want := []string{"Contains @ symbol (potential redirect)", "Contains suspicious characters"}
	if !reflect.DeepEqual(res.Flags, want) {
		t.Fatalf("flags = %v, want %v", res.Flags, want)
	}
}

func TestAnalyzeURL_ShortenerNeedsExactHost(t *testing.T) {
	t.Parallel()
	if res := heuristics.AnalyzeURL("https://microsoft.com"); len(res.Flags) != 0 {
		t.Fatalf("unexpected flags for microsoft.com: %v", res.Flags)
	}
}

func TestAnalyzeURL_Homograph(t *testing.T) {
	t.Parallel()
	const cyrillicHost = "аpple.com" // Cyrillic a

	direct := heuristics.AnalyzeURL("https://" + cyrillicHost)
	if indexOf(direct.Flags, "Domain uses non-Latin characters (potential homograph attack)") < 0 {
		t.Errorf("expected homograph flag for unicode host, got %v", direct.Flags)
	}

	puny, err := idna.Punycode.ToASCII(cyrillicHost)
	if err != nil {
		t.Fatalf("ToASCII: %v", err)
	}
	encoded := heuristics.AnalyzeURL("https://" + puny)
	if indexOf(encoded.Flags, "Domain uses non-Latin characters (potential homograph attack)") < 0 {
		t.Errorf("expected homograph flag for punycode host %s, got %v", puny, encoded.Flags)
	}
}

func TestAnalyzeURL_ClampsAt100(t *testing.T) {
	t.Parallel()
	raw := "http://user@1.2.3.4/" + strings.Repeat("x", 200) + "/login.exe"
	res := heuristics.AnalyzeURL(raw)
	if res.Score != 100 {
		t.Fatalf("score = %d, want clamp to 100 (flags %v)", res.Score, res.Flags)
	}
}

func TestAnalyzer_WeightOverride(t *testing.T) {
	t.Parallel()
	a := heuristics.New(heuristics.Config{Weights: map[heuristics.Rule]int{heuristics.RuleNoHTTPS: 0}})
	res := a.AnalyzeURL("http://example.com")
	if res.Score != 0 {
		t.Errorf("score = %d, want 0 with zeroed weight", res.Score)
	}
	if len(res.Flags) != 1 {
		t.Errorf("flag should still be reported, got %v", res.Flags)
	}
}

// ─── AnalyzeDomainAge ───────────────────────────────────────────────────

func intPtr(v int) *int { return &v }

func TestAnalyzeDomainAge(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		age   *int
		score int
		flag  bool
	}{
		{"unknown", nil, 0, false},
		{"today", intPtr(0), 40, true},
		{"ten days", intPtr(10), 40, true},
		{"two months", intPtr(45), 25, true},
		{"half year", intPtr(200), 10, true},
		{"one year", intPtr(365), 0, false},
		{"old", intPtr(400), 0, false},
	}
	for _, tc := range cases {
		got := heuristics.AnalyzeDomainAge(tc.age)
		if got.Score != tc.score {
			t.Errorf("%s: score = %d, want %d", tc.name, got.Score, tc.score)
		}
		if (got.Flag != "") != tc.flag {
			t.Errorf("%s: flag = %q, want present=%v", tc.name, got.Flag, tc.flag)
		}
	}
}

func TestAnalyzeDomainAge_Flags(t *testing.T) {
	t.Parallel()
	if got := heuristics.AnalyzeDomainAge(intPtr(10)).Flag; got != "Domain registered less than 30 days ago" {
		t.Errorf("flag = %q", got)
	}
}

func TestAnalyzer_CustomAgeBands(t *testing.T) {
	t.Parallel()
	a := heuristics.New(heuristics.Config{AgeBands: []heuristics.AgeBand{{MaxDays: 7, Score: 50, Flag: "brand new"}}})
	if got := a.AnalyzeDomainAge(intPtr(3)); got.Score != 50 || got.Flag != "brand new" {
		t.Errorf("got %+v", got)
	}
	if got := a.AnalyzeDomainAge(intPtr(10)); got.Score != 0 {
		t.Errorf("got %+v, want 0 outside custom bands", got)
	}
}
