// Package report renders harness results for humans and machines. Human
// output is color-coded by severity and failure direction; JSON output is
// the raw RunReport for CI and the docs renderer.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clickfixhq/clipshield/internal/harness"
	"github.com/clickfixhq/clipshield/internal/rule"
)

var (
	stylePass         = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleFail         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleName         = lipgloss.NewStyle().Bold(true)
	styleCritical     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	styleHigh         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleMedium       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	styleExperimental = lipgloss.NewStyle().Faint(true)
	styleSample       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleRule         = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// Renderer formats run reports. Color is decided by the caller (TTY
// detection or an explicit flag), not here.
type Renderer struct {
	Color bool
}

// Render formats the full human-readable breakdown: one line per rule,
// every failing sample with its direction, and the aggregate summary.
func (re *Renderer) Render(rep *harness.RunReport) string {
	var b strings.Builder

	for i := range rep.Rules {
		b.WriteString(re.ruleLine(&rep.Rules[i]))
		b.WriteByte('\n')
	}

	if len(rep.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range rep.Failures {
			b.WriteString("  " + re.failureLine(f) + "\n")
		}
	}

	b.WriteByte('\n')
	b.WriteString(re.summaryLine(rep))
	b.WriteByte('\n')
	return b.String()
}

// RenderJSON formats the report as indented JSON.
func RenderJSON(rep *harness.RunReport) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

func (re *Renderer) ruleLine(rr *harness.RuleReport) string {
	icon := re.style(stylePass, "✓")
	if !rr.Pass() {
		icon = re.style(styleFail, "✗")
	}

	return fmt.Sprintf("%s %s %s (%d/%d) - Malicious: %d/%d, Benign: %d/%d",
		icon,
		re.severityBadge(rr),
		re.style(styleName, rr.Name),
		rr.Passed(), rr.Total(),
		rr.MaliciousPassed, rr.MaliciousPassed+rr.MaliciousFailed,
		rr.BenignPassed, rr.BenignPassed+rr.BenignFailed,
	)
}

func (re *Renderer) failureLine(f harness.SampleResult) string {
	var kind, verdict string
	switch f.Failure {
	case harness.FailureDetectionGap:
		kind = "FALSE NEGATIVE"
		verdict = "Should block"
	case harness.FailureFalseAlarm:
		kind = "FALSE POSITIVE"
		verdict = "Should allow"
	case harness.FailureTimeout:
		kind = "TIMEOUT"
		verdict = "Evaluation exceeded time bound"
	}

	return fmt.Sprintf("%s %s: %s - %s: %s",
		re.style(styleFail, "✗"),
		re.style(styleRule, f.Rule),
		kind,
		verdict,
		re.style(styleSample, truncate(f.Sample, 80)),
	)
}

func (re *Renderer) summaryLine(rep *harness.RunReport) string {
	line := fmt.Sprintf("Patterns: %d/%d passed | Tests: %d/%d passed",
		rep.PassedRules, rep.TotalRules, rep.PassedTests, rep.TotalTests)

	if rep.TotalTests > 0 {
		line += fmt.Sprintf(" | Success rate: %d%%", rep.PassedTests*100/rep.TotalTests)
	}
	if rep.Timeouts > 0 {
		line += fmt.Sprintf(" | Timeouts: %d", rep.Timeouts)
	}

	if rep.Success {
		return line + " " + re.style(stylePass, "✓")
	}
	return line + fmt.Sprintf(" | %s", re.style(styleFail, fmt.Sprintf("%d failed", rep.FailedTests)))
}

func (re *Renderer) severityBadge(rr *harness.RuleReport) string {
	label := "[" + strings.ToUpper(string(rr.Severity)) + "]"
	if rr.Experimental {
		return re.style(styleExperimental, "[EXPERIMENTAL/"+strings.ToUpper(string(rr.Severity))+"]")
	}
	switch rr.Severity {
	case rule.SeverityCritical:
		return re.style(styleCritical, label)
	case rule.SeverityHigh:
		return re.style(styleHigh, label)
	case rule.SeverityMedium:
		return re.style(styleMedium, label)
	}
	return label
}

func (re *Renderer) style(s lipgloss.Style, text string) string {
	if !re.Color {
		return text
	}
	return s.Render(text)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
