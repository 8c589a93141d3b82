// Package harness runs every loaded rule's regex sub-patterns over its
// curated malicious and benign samples and aggregates the results. A
// malicious sample that fails to match is a detection gap (false negative);
// a benign sample that matches is a false alarm (false positive). Both
// directions are hard failures with equal weight: the rule data carries no
// tolerance threshold, so the harness does not invent one.
package harness

import (
	"sort"
	"time"

	"github.com/clickfixhq/clipshield/internal/matcher"
	"github.com/clickfixhq/clipshield/internal/rule"
)

// FailureKind classifies a failing sample.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureDetectionGap FailureKind = "false-negative"
	FailureFalseAlarm   FailureKind = "false-positive"
	FailureTimeout      FailureKind = "timeout"
)

// SampleResult is the outcome of evaluating one sample against one rule.
type SampleResult struct {
	Rule        string      `json:"rule"`
	Sample      string      `json:"sample"`
	ExpectMatch bool        `json:"expect_match"`
	Matched     bool        `json:"matched"`
	TimedOut    bool        `json:"timed_out,omitempty"`
	Pass        bool        `json:"pass"`
	Failure     FailureKind `json:"failure,omitempty"`
}

// RuleReport aggregates the sample results for one rule.
type RuleReport struct {
	Name            string         `json:"name"`
	Severity        rule.Severity  `json:"severity"`
	Experimental    bool           `json:"experimental,omitempty"`
	MaliciousPassed int            `json:"malicious_passed"`
	MaliciousFailed int            `json:"malicious_failed"`
	BenignPassed    int            `json:"benign_passed"`
	BenignFailed    int            `json:"benign_failed"`
	Timeouts        int            `json:"timeouts,omitempty"`
	Samples         []SampleResult `json:"samples"`
}

// Total is the number of samples evaluated for the rule.
func (r *RuleReport) Total() int {
	return r.MaliciousPassed + r.MaliciousFailed + r.BenignPassed + r.BenignFailed
}

func (r *RuleReport) Passed() int { return r.MaliciousPassed + r.BenignPassed }
func (r *RuleReport) Failed() int { return r.MaliciousFailed + r.BenignFailed }

// Pass reports whether the rule had zero failures. A rule with no samples
// of a given kind contributes vacuously for that kind.
func (r *RuleReport) Pass() bool { return r.Failed() == 0 }

// RunReport aggregates a whole harness invocation.
type RunReport struct {
	Rules       []RuleReport   `json:"rules"`
	TotalRules  int            `json:"total_rules"`
	PassedRules int            `json:"passed_rules"`
	FailedRules int            `json:"failed_rules"`
	TotalTests  int            `json:"total_tests"`
	PassedTests int            `json:"passed_tests"`
	FailedTests int            `json:"failed_tests"`
	Timeouts    int            `json:"timeouts,omitempty"`
	Failures    []SampleResult `json:"failures,omitempty"`
	Success     bool           `json:"success"`
}

// Runner evaluates rules against their samples. The zero value runs with
// no per-sample time bound.
type Runner struct {
	// Timeout bounds a single sample evaluation. A timeout is recorded as
	// a dedicated failure kind: it may indicate a dangerous pattern rather
	// than a wrong one. Zero disables the bound.
	Timeout time.Duration
}

// Run evaluates every sample of every rule and builds the aggregate report.
// Rules are processed independently: one rule's failures never stop the
// evaluation of the rest, so a single invocation surfaces every problem.
// Reports are ordered by rule name regardless of input order, so repeated
// runs on an unchanged rule set yield identical output.
func (ru *Runner) Run(rules []*rule.Rule) *RunReport {
	report := &RunReport{TotalRules: len(rules), Success: true}

	for _, r := range rules {
		rr := ru.runRule(r)
		report.Rules = append(report.Rules, rr)
	}

	sort.Slice(report.Rules, func(i, j int) bool {
		return report.Rules[i].Name < report.Rules[j].Name
	})

	for _, rr := range report.Rules {
		report.TotalTests += rr.Total()
		report.PassedTests += rr.Passed()
		report.FailedTests += rr.Failed()
		report.Timeouts += rr.Timeouts
		if rr.Pass() {
			report.PassedRules++
		} else {
			report.FailedRules++
			report.Success = false
		}
		for _, s := range rr.Samples {
			if !s.Pass {
				report.Failures = append(report.Failures, s)
			}
		}
	}

	return report
}

func (ru *Runner) runRule(r *rule.Rule) RuleReport {
	rr := RuleReport{
		Name:         r.Name,
		Severity:     r.Severity,
		Experimental: r.Experimental,
	}

	for _, sample := range r.Malicious {
		sr := ru.evaluate(r, sample, true)
		if sr.Pass {
			rr.MaliciousPassed++
		} else {
			rr.MaliciousFailed++
		}
		if sr.TimedOut {
			rr.Timeouts++
		}
		rr.Samples = append(rr.Samples, sr)
	}

	for _, sample := range r.Benign {
		sr := ru.evaluate(r, sample, false)
		if sr.Pass {
			rr.BenignPassed++
		} else {
			rr.BenignFailed++
		}
		if sr.TimedOut {
			rr.Timeouts++
		}
		rr.Samples = append(rr.Samples, sr)
	}

	return rr
}

func (ru *Runner) evaluate(r *rule.Rule, sample string, expectMatch bool) SampleResult {
	sr := SampleResult{
		Rule:        r.Name,
		Sample:      sample,
		ExpectMatch: expectMatch,
	}

	switch r.Matcher.MatchesTimeout(sample, ru.Timeout) {
	case matcher.OutcomeTimeout:
		sr.TimedOut = true
		sr.Failure = FailureTimeout
		return sr
	case matcher.OutcomeMatch:
		sr.Matched = true
	}

	sr.Pass = sr.Matched == expectMatch
	if !sr.Pass {
		if expectMatch {
			sr.Failure = FailureDetectionGap
		} else {
			sr.Failure = FailureFalseAlarm
		}
	}
	return sr
}
