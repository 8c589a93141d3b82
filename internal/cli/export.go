package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clickfixhq/clipshield/internal/config"
	"github.com/clickfixhq/clipshield/internal/rule"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the parsed rule set as JSON for the docs renderer",
	Long: `Print every rule (all tiers, experimental included) as JSON: name,
tier, severity, description, sub-patterns, and sample sets. The static docs
renderer consumes this instead of re-parsing the YAML files itself.`,
	RunE: exportCommand,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func exportCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(patternsDir, "", 0)
	if err != nil {
		return err
	}

	rules, _, err := rule.LoadAll(cfg.PatternsDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
