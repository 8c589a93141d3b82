package matcher

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Outcome is the result of one bounded evaluation of a candidate string.
type Outcome int

const (
	OutcomeNoMatch Outcome = iota
	OutcomeMatch
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "no-match"
	}
}

// Matcher holds the compiled sub-patterns of one rule. A candidate matches
// the rule iff any sub-pattern finds a match anywhere in it (OR semantics,
// unanchored). The matcher performs no normalization of the candidate;
// anchoring and case flags are the pattern author's responsibility.
type Matcher struct {
	subs []*regexp.Regexp
}

// Compile builds a Matcher from raw sub-pattern strings. Each pattern is
// compiled exactly once, in dot-matches-newline mode, since clipboard
// payloads routinely span lines. A pattern that fails to compile is a
// load-time error; Matchers never see invalid patterns at evaluation time.
func Compile(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no sub-patterns to compile")
	}

	m := &Matcher{subs: make([]*regexp.Regexp, 0, len(patterns))}
	for i, p := range patterns {
		re, err := regexp.Compile("(?s)" + p)
		if err != nil {
			return nil, fmt.Errorf("sub-pattern %d: %w", i+1, err)
		}
		m.subs = append(m.subs, re)
	}
	return m, nil
}

// Matches reports whether any sub-pattern matches the candidate.
func (m *Matcher) Matches(candidate string) bool {
	for _, re := range m.subs {
		if re.MatchString(candidate) {
			return true
		}
	}
	return false
}

// MatchesTimeout evaluates the candidate with a per-sample time bound.
// A zero or negative bound disables the limit. Go's regexp engine runs in
// linear time, but large inputs against alternation-heavy patterns can
// still be slow; a timeout is reported as a distinct outcome so a hang is
// attributable to the offending rule rather than stalling the whole run.
func (m *Matcher) MatchesTimeout(candidate string, d time.Duration) Outcome {
	if d <= 0 {
		if m.Matches(candidate) {
			return OutcomeMatch
		}
		return OutcomeNoMatch
	}

	done := make(chan bool, 1)
	go func() {
		done <- m.Matches(candidate)
	}()

	select {
	case matched := <-done:
		if matched {
			return OutcomeMatch
		}
		return OutcomeNoMatch
	case <-time.After(d):
		return OutcomeTimeout
	}
}

// CheckFormat validates the inline-flag convention for a raw sub-pattern:
// a pattern that opts into case-insensitivity must use the (?i)(<pattern>)
// form so the flag governs every alternation branch and the top-level
// alternation is not misparsed by other regex engines consuming the same
// rule files (the docs renderer evaluates them in the browser).
func CheckFormat(pattern string) error {
	p := strings.TrimSpace(pattern)
	if strings.HasPrefix(p, "(?i)") && !(strings.HasPrefix(p, "(?i)(") && strings.HasSuffix(p, ")")) {
		return fmt.Errorf("pattern with (?i) must use (?i)(<pattern>) format")
	}
	return nil
}
