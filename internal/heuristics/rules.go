package heuristics

// Rule identifies one lexical URL check.
type Rule string

const (
	RuleIPHost           Rule = "ip_host"
	RuleLongURL          Rule = "long_url"
	RuleAtSymbol         Rule = "at_symbol"
	RuleManySubdomains   Rule = "many_subdomains"
	RuleSuspiciousChars  Rule = "suspicious_chars"
	RuleNoHTTPS          Rule = "no_https"
	RuleSuspiciousTLD    Rule = "suspicious_tld"
	RuleSecurityKeywords Rule = "security_keywords"
	RuleHomograph        Rule = "homograph"
	RuleManyHyphens      Rule = "many_hyphens"
	RuleManyDigits       Rule = "many_digits"
	RuleShortener        Rule = "shortener"
	RuleExecutable       Rule = "executable_download"
	RuleLoginPath        Rule = "login_path"
)

// Order is the fixed evaluation order. Flags are emitted in this order.
var Order = []Rule{
	RuleIPHost,
	RuleLongURL,
	RuleAtSymbol,
	RuleManySubdomains,
	RuleSuspiciousChars,
	RuleNoHTTPS,
	RuleSuspiciousTLD,
	RuleSecurityKeywords,
	RuleHomograph,
	RuleManyHyphens,
	RuleManyDigits,
	RuleShortener,
	RuleExecutable,
	RuleLoginPath,
}

// DefaultWeights maps each rule to the points it adds when triggered.
var DefaultWeights = map[Rule]int{
	RuleIPHost:           30,
	RuleLongURL:          20,
	RuleAtSymbol:         25,
	RuleManySubdomains:   15,
	RuleSuspiciousChars:  10,
	RuleNoHTTPS:          15,
	RuleSuspiciousTLD:    25,
	RuleSecurityKeywords: 15,
	RuleHomograph:        20,
	RuleManyHyphens:      10,
	RuleManyDigits:       10,
	RuleShortener:        15,
	RuleExecutable:       30,
	RuleLoginPath:        5, // often legitimate
}

// Describe returns the human-readable flag for a rule.
func Describe(r Rule) string {
	switch r {
	case RuleIPHost:
		return "Uses IP address instead of domain name"
	case RuleLongURL:
		return "Unusually long URL"
	case RuleAtSymbol:
		return "Contains @ symbol (potential redirect)"
	case RuleManySubdomains:
		return "Excessive number of subdomains"
	case RuleSuspiciousChars:
		return "Contains suspicious characters"
	case RuleNoHTTPS:
		return "Not using HTTPS"
	case RuleSuspiciousTLD:
		return "Uses suspicious top-level domain"
	case RuleSecurityKeywords:
		return "Domain contains suspicious security-related keywords"
	case RuleHomograph:
		return "Domain uses non-Latin characters (potential homograph attack)"
	case RuleManyHyphens:
		return "Domain contains excessive hyphens"
	case RuleManyDigits:
		return "Domain contains excessive numbers"
	case RuleShortener:
		return "URL shortener detected - cannot verify final destination"
	case RuleExecutable:
		return "URL leads to executable file download"
	case RuleLoginPath:
		return "URL contains login/password related path"
	default:
		return string(r)
	}
}

var (
	suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".click", ".download", ".top", ".bid", ".loan", ".win", ".racing"}

	securityKeywords = []string{"secure", "verify", "account", "update", "confirm", "suspended", "locked", "urgent"}

	shorteners = []string{"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly", "is.gd", "buff.ly", "short.link"}

	loginKeywords = []string{"password", "login", "signin", "account"}
)
