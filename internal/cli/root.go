package cli

import (
	"github.com/spf13/cobra"
)

var (
	patternsDir string
	noColor     bool
)

var rootCmd = &cobra.Command{
	Use:   "clipshield",
	Short: "ClipShield - ClickFix detection pattern library and test harness",
	Long: `ClipShield is a curated library of regex detection rules for ClickFix
social-engineering attacks (malicious clipboard commands disguised as fixes),
with a self-test harness that validates every rule against known-malicious
and known-benign samples.

ClipShield only supplies patterns and a way to validate them; runtime
clipboard enforcement is left to external tools.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&patternsDir, "patterns", "", "Path to patterns directory (default: ./patterns, then ~/.clipshield/patterns)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
}

func Execute() error {
	return rootCmd.Execute()
}
