package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/clickfixhq/clipshield/internal/config"
	"github.com/clickfixhq/clipshield/internal/harness"
	"github.com/clickfixhq/clipshield/internal/report"
	"github.com/clickfixhq/clipshield/internal/rule"
	"github.com/clickfixhq/clipshield/internal/runlog"
)

var (
	includeExperimental bool
	jsonOutput          bool
	sampleTimeout       time.Duration
	runLogPath          string
)

var testCmd = &cobra.Command{
	Use:   "test [rule]",
	Short: "Validate detection patterns against their sample sets",
	Long: `Run every detection rule's sub-patterns over its known-malicious samples
(must match) and known-benign samples (must not match), and report every
false negative and false positive.

Experimental patterns require allowlists and are skipped unless --all is set.

Examples:
  clipshield test                              # all stable patterns
  clipshield test --all                        # include experimental
  clipshield test critical-01-base64-powershell
  clipshield test "critical-*"                 # glob over rule names`,
	Args: cobra.MaximumNArgs(1),
	RunE: testCommand,
}

func init() {
	testCmd.Flags().BoolVar(&includeExperimental, "all", false, "Include experimental-tier patterns")
	testCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")
	testCmd.Flags().DurationVar(&sampleTimeout, "timeout", config.DefaultSampleTimeout, "Per-sample evaluation time bound (0 disables)")
	testCmd.Flags().StringVar(&runLogPath, "log", "", "Append a JSONL run summary to this file")
	rootCmd.AddCommand(testCmd)
}

func testCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(patternsDir, runLogPath, sampleTimeout)
	if err != nil {
		return err
	}

	opts := rule.LoadOptions{IncludeExperimental: includeExperimental}
	if len(args) == 1 {
		opts.Filter = args[0]
	}

	rules, warnings, err := rule.Load(cfg.PatternsDir, opts)
	if err != nil {
		return err
	}

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	runner := &harness.Runner{Timeout: cfg.SampleTimeout}
	rep := runner.Run(rules)

	if jsonOutput {
		out, err := report.RenderJSON(rep)
		if err != nil {
			return err
		}
		fmt.Println(out)
	} else {
		renderer := &report.Renderer{Color: useColor()}
		fmt.Print(renderer.Render(rep))
	}

	if cfg.LogPath != "" {
		if err := logRun(cfg, opts, rep); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write run log: %v\n", err)
		}
	}

	if !rep.Success {
		os.Exit(1)
	}
	return nil
}

func logRun(cfg *config.Config, opts rule.LoadOptions, rep *harness.RunReport) error {
	logger, err := runlog.New(cfg.LogPath)
	if err != nil {
		return err
	}
	defer logger.Close()

	var failing []string
	for _, rr := range rep.Rules {
		if !rr.Pass() {
			failing = append(failing, rr.Name)
		}
	}

	return logger.Log(runlog.RunEvent{
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		PatternsDir:         cfg.PatternsDir,
		Filter:              opts.Filter,
		IncludeExperimental: opts.IncludeExperimental,
		Rules:               rep.TotalRules,
		Tests:               rep.TotalTests,
		Passed:              rep.PassedTests,
		Failed:              rep.FailedTests,
		Timeouts:            rep.Timeouts,
		FailingRules:        failing,
		Success:             rep.Success,
	})
}

func useColor() bool {
	if noColor {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
