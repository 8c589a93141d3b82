package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clickfixhq/clipshield/internal/config"
	"github.com/clickfixhq/clipshield/internal/rule"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all detection patterns, experimental included",
	RunE:  listCommand,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(patternsDir, "", 0)
	if err != nil {
		return err
	}

	rules, _, err := rule.LoadAll(cfg.PatternsDir)
	if err != nil {
		return err
	}

	fmt.Printf("%-42s %-10s %-6s %-9s %-9s %s\n", "NAME", "SEVERITY", "EXP", "PATTERNS", "SAMPLES", "DESCRIPTION")
	for _, r := range rules {
		exp := ""
		if r.Experimental {
			exp = "yes"
		}
		fmt.Printf("%-42s %-10s %-6s %-9d %-9d %s\n",
			r.Name, r.Severity, exp, len(r.Subpatterns),
			len(r.Malicious)+len(r.Benign), truncate(r.Description, 60))
	}
	fmt.Printf("\n%d patterns\n", len(rules))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
