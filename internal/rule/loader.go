package rule

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/clickfixhq/clipshield/internal/matcher"
)

// LoadOptions controls rule selection. Parsing and validation always cover
// every rule file in the directory; selection only decides which rules the
// caller gets back.
type LoadOptions struct {
	// IncludeExperimental opts experimental-tier rules into the result.
	// They are excluded by default: experimental patterns require an
	// allowlist before production use.
	IncludeExperimental bool

	// Filter selects a single rule by exact name or by glob (e.g.
	// "critical-*"). A filter bypasses the experimental exclusion, and a
	// filter that matches nothing is a RuleNotFoundError.
	Filter string
}

// Load reads every rule file under dir, validates it, and returns the
// selected rules ordered by tier (critical, high, medium, experimental)
// and name. The returned warnings flag rules that load fine but cannot be
// fully verified, such as rules with no benign samples yet.
//
// Any malformed file aborts the load: a rule set with one bad file cannot
// be trusted, so no partial result is returned.
func Load(dir string, opts LoadOptions) ([]*Rule, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading patterns dir: %w", err)
	}

	var rules []*Rule
	var warnings []string
	seen := make(map[string]string) // rule name -> file that declared it

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || !isYAMLFile(name) {
			continue
		}

		path := filepath.Join(dir, name)
		r, warns, err := loadFile(path)
		if err != nil {
			return nil, nil, err
		}

		if prev, dup := seen[r.Name]; dup {
			return nil, nil, &MalformedRuleError{
				File:  path,
				Field: "name",
				Err:   fmt.Errorf("duplicate of rule declared in %s", prev),
			}
		}
		seen[r.Name] = path

		rules = append(rules, r)
		warnings = append(warnings, warns...)
	}

	selected, err := selectRules(rules, opts)
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(selected, func(i, j int) bool {
		if tierRank[selected[i].Tier] != tierRank[selected[j].Tier] {
			return tierRank[selected[i].Tier] < tierRank[selected[j].Tier]
		}
		return selected[i].Name < selected[j].Name
	})

	return selected, warnings, nil
}

// LoadAll returns every rule in dir, experimental included. The docs
// renderer consumes this so it never re-parses rule files itself.
func LoadAll(dir string) ([]*Rule, []string, error) {
	return Load(dir, LoadOptions{IncludeExperimental: true})
}

func loadFile(path string) (*Rule, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading rule file: %w", err)
	}

	var doc ruleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, &MalformedRuleError{File: path, Field: "yaml", Err: err}
	}

	if doc.Name == "" {
		return nil, nil, &MalformedRuleError{File: path, Field: "name", Err: fmt.Errorf("missing")}
	}
	if doc.Description == "" {
		return nil, nil, &MalformedRuleError{File: path, Field: "description", Err: fmt.Errorf("missing")}
	}

	r := &Rule{
		Name:        doc.Name,
		Severity:    Severity(strings.ToLower(strings.TrimSpace(doc.Severity))),
		Description: doc.Description,
		Malicious:   pruneSamples(doc.Malicious),
		Benign:      pruneSamples(doc.Benign),
		File:        path,
	}

	if r.Severity == "" {
		return nil, nil, &MalformedRuleError{File: path, Field: "severity", Err: fmt.Errorf("missing")}
	}
	if !ValidSeverity(r.Severity) {
		return nil, nil, &MalformedRuleError{File: path, Field: "severity", Err: fmt.Errorf("unknown severity %q", r.Severity)}
	}

	if err := resolveTier(r, path); err != nil {
		return nil, nil, err
	}

	if err := collectSubpatterns(r, &doc, path); err != nil {
		return nil, nil, err
	}

	patterns := make([]string, len(r.Subpatterns))
	for i, sp := range r.Subpatterns {
		patterns[i] = sp.Pattern
	}
	m, err := matcher.Compile(patterns)
	if err != nil {
		return nil, nil, &MalformedRuleError{File: path, Field: "pattern", Err: err}
	}
	r.Matcher = m

	var warnings []string
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if r.Name != stem {
		warnings = append(warnings, fmt.Sprintf("%s: rule name %q does not match file name", path, r.Name))
	}
	if len(r.Malicious) == 0 {
		warnings = append(warnings, fmt.Sprintf("%s: no malicious samples, detection cannot be verified", r.Name))
	}
	if len(r.Benign) == 0 {
		warnings = append(warnings, fmt.Sprintf("%s: no benign samples, false positives cannot be verified", r.Name))
	}

	return r, warnings, nil
}

// resolveTier derives the rule's tier from its name prefix, falling back to
// the file name prefix, and checks that the tier agrees with the declared
// severity. Experimental names embed the underlying severity:
// experimental-<severity>-<NN>-<slug>.
func resolveTier(r *Rule, path string) error {
	tier, rest, ok := splitTier(r.Name)
	if !ok {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		tier, rest, ok = splitTier(stem)
	}
	if !ok {
		return &MalformedRuleError{
			File:  path,
			Field: "name",
			Err:   fmt.Errorf("no tier prefix (want critical-, high-, medium- or experimental-)"),
		}
	}

	r.Tier = tier
	r.Experimental = tier == TierExperimental

	if r.Experimental {
		embedded, _, ok := splitTier(rest)
		if !ok || embedded == TierExperimental {
			return &MalformedRuleError{
				File:  path,
				Field: "name",
				Err:   fmt.Errorf("experimental rule must embed its severity (experimental-<severity>-...)"),
			}
		}
		if Severity(embedded) != r.Severity {
			return &MalformedRuleError{
				File:  path,
				Field: "severity",
				Err:   fmt.Errorf("name says %s, severity says %s", embedded, r.Severity),
			}
		}
		return nil
	}

	if Severity(tier) != r.Severity {
		return &MalformedRuleError{
			File:  path,
			Field: "severity",
			Err:   fmt.Errorf("name tier %s disagrees with severity %s", tier, r.Severity),
		}
	}
	return nil
}

func splitTier(name string) (Tier, string, bool) {
	head, rest, _ := strings.Cut(name, "-")
	tier := Tier(head)
	if _, ok := tierRank[tier]; !ok {
		return "", "", false
	}
	return tier, rest, true
}

func collectSubpatterns(r *Rule, doc *ruleFile, path string) error {
	switch {
	case len(doc.Patterns) > 0:
		for _, sp := range doc.Patterns {
			if strings.TrimSpace(sp.Pattern) == "" {
				return &MalformedRuleError{
					File:  path,
					Field: "patterns",
					Err:   fmt.Errorf("sub-pattern %q has no pattern", sp.Name),
				}
			}
			if err := matcher.CheckFormat(sp.Pattern); err != nil {
				return &MalformedRuleError{File: path, Field: "patterns", Err: fmt.Errorf("%s: %w", sp.Name, err)}
			}
			r.Subpatterns = append(r.Subpatterns, Subpattern{
				Name:        sp.Name,
				Pattern:     strings.TrimSpace(sp.Pattern),
				Description: sp.Description,
			})
		}
	case strings.TrimSpace(doc.Pattern) != "":
		if err := matcher.CheckFormat(doc.Pattern); err != nil {
			return &MalformedRuleError{File: path, Field: "pattern", Err: err}
		}
		r.Subpatterns = []Subpattern{{Pattern: strings.TrimSpace(doc.Pattern)}}
	default:
		return &MalformedRuleError{File: path, Field: "pattern", Err: fmt.Errorf("missing")}
	}
	return nil
}

func selectRules(rules []*Rule, opts LoadOptions) ([]*Rule, error) {
	if opts.Filter != "" {
		var matched []*Rule
		for _, r := range rules {
			if r.Name == opts.Filter {
				matched = append(matched, r)
			}
		}
		if matched == nil {
			g, err := glob.Compile(opts.Filter)
			if err != nil {
				return nil, &RuleNotFoundError{Name: opts.Filter}
			}
			for _, r := range rules {
				if g.Match(r.Name) {
					matched = append(matched, r)
				}
			}
		}
		if len(matched) == 0 {
			return nil, &RuleNotFoundError{Name: opts.Filter}
		}
		return matched, nil
	}

	if opts.IncludeExperimental {
		return rules, nil
	}

	var selected []*Rule
	for _, r := range rules {
		if !r.Experimental {
			selected = append(selected, r)
		}
	}
	return selected, nil
}

func pruneSamples(samples []string) []string {
	var out []string
	for _, s := range samples {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
