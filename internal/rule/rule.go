package rule

import (
	"github.com/clickfixhq/clipshield/internal/matcher"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Tier is the maturity bucket encoded in a rule's name prefix. The first
// three tiers coincide with severities; experimental rules carry an
// underlying severity plus the experimental flag and require an allowlist
// before production use.
type Tier string

const (
	TierCritical     Tier = "critical"
	TierHigh         Tier = "high"
	TierMedium       Tier = "medium"
	TierExperimental Tier = "experimental"
)

// tierRank orders tiers for loading and rendering (most severe first).
var tierRank = map[Tier]int{
	TierCritical:     0,
	TierHigh:         1,
	TierMedium:       2,
	TierExperimental: 3,
}

// Rule is one ClickFix detection definition, parsed from a YAML file under
// the patterns directory. Rules are immutable after load; the compiled
// matcher is built once per rule for the duration of a run.
type Rule struct {
	Name         string       `json:"name"`
	Severity     Severity     `json:"severity"`
	Tier         Tier         `json:"tier"`
	Experimental bool         `json:"experimental"`
	Description  string       `json:"description"`
	Subpatterns  []Subpattern `json:"subpatterns"`
	Malicious    []string     `json:"malicious"`
	Benign       []string     `json:"benign"`
	File         string       `json:"file"`

	Matcher *matcher.Matcher `json:"-"`
}

// Subpattern is one regular expression among possibly several associated
// with a rule. A rule matches iff any sub-pattern matches.
type Subpattern struct {
	Name        string `json:"name,omitempty"`
	Pattern     string `json:"pattern"`
	Description string `json:"description,omitempty"`
}

// ValidSeverity reports whether s is a recognized severity.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium:
		return true
	}
	return false
}

// ruleFile mirrors the on-disk YAML layout. The format accepts either a
// single `pattern` scalar or a `patterns` list of named sub-patterns.
type ruleFile struct {
	Name        string          `yaml:"name"`
	Severity    string          `yaml:"severity"`
	Description string          `yaml:"description"`
	Pattern     string          `yaml:"pattern"`
	Patterns    []subpatternDoc `yaml:"patterns"`
	Malicious   []string        `yaml:"malicious"`
	Benign      []string        `yaml:"benign"`
}

type subpatternDoc struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
}
