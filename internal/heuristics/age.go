package heuristics

// AgeBand assigns Score to domains younger than MaxDays.
type AgeBand struct {
	MaxDays int    `yaml:"max_days"`
	Score   int    `yaml:"score"`
	Flag    string `yaml:"flag"`
}

// DefaultAgeBands are evaluated in order; the first match wins.
var DefaultAgeBands = []AgeBand{
	{MaxDays: 30, Score: 40, Flag: "Domain registered less than 30 days ago"},
	{MaxDays: 90, Score: 25, Flag: "Domain registered less than 90 days ago"},
	{MaxDays: 365, Score: 10, Flag: "Domain registered less than 1 year ago"},
}

// AgeResult is the domain-age contribution. Flag is empty when no band matched.
type AgeResult struct {
	Score int    `json:"score"`
	Flag  string `json:"flag,omitempty"`
}

// AnalyzeDomainAge maps ageDays to a risk contribution using the default bands.
func AnalyzeDomainAge(ageDays *int) AgeResult {
	return defaultAnalyzer.AnalyzeDomainAge(ageDays)
}

// AnalyzeDomainAge maps ageDays to a risk contribution. An unknown age is
// not penalized.
func (a *Analyzer) AnalyzeDomainAge(ageDays *int) AgeResult {
	if ageDays == nil {
		return AgeResult{}
	}
	for _, b := range a.ageBands {
		if *ageDays < b.MaxDays {
			return AgeResult{Score: b.Score, Flag: b.Flag}
		}
	}
	return AgeResult{}
}
