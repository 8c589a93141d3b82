package rule

import "fmt"

// MalformedRuleError reports a rule file that is missing a required field,
// contains an uncompilable regex, or violates a naming convention. It fails
// the whole run: the rule set cannot be trusted until the file is fixed.
type MalformedRuleError struct {
	File  string
	Field string
	Err   error
}

func (e *MalformedRuleError) Error() string {
	return fmt.Sprintf("malformed rule %s: field %q: %v", e.File, e.Field, e.Err)
}

func (e *MalformedRuleError) Unwrap() error { return e.Err }

// RuleNotFoundError reports a single-rule filter that matched no loaded rule.
type RuleNotFoundError struct {
	Name string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("no rule matches %q", e.Name)
}
