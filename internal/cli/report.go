package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kyua-go/kyua/internal/config"
	"github.com/kyua-go/kyua/internal/logger"
)

var (
	reportLast    int
	reportVerbose bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the recorded test results",
	Long: `Read the results log and print an aggregate summary of the
recorded outcomes.

Examples:
  kyua report                # Summary of all recorded results
  kyua report --last 20      # Consider only the last 20 records
  kyua report --verbose      # Also list every failed or broken case`,
	RunE: reportCommand,
}

func init() {
	reportCmd.Flags().IntVar(&reportLast, "last", 0, "Consider only the last N records")
	reportCmd.Flags().BoolVar(&reportVerbose, "verbose", false, "List every failed or broken test case")
	rootCmd.AddCommand(reportCmd)
}

func reportCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(kyuafilePath, resultsPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	records, err := logger.Read(cfg.ResultsPath)
	if err != nil {
		return fmt.Errorf("failed to read results log: %w", err)
	}

	ui := NewUI()
	if len(records) == 0 {
		ui.Out("No test results recorded.")
		return nil
	}

	if reportLast > 0 && reportLast < len(records) {
		records = records[len(records)-reportLast:]
	}

	counts := map[string]int{}
	bad := 0
	for _, record := range records {
		counts[record.Result]++
		if !record.Good() {
			bad++
		}
	}

	ui.Separator()
	ui.Out("Results from %s", cfg.ResultsPath)
	ui.Separator()
	ui.Out("Total test cases:    %d", len(records))
	ui.Out("  passed:            %d", counts["passed"])
	ui.Out("  skipped:           %d", counts["skipped"])
	ui.Out("  expected failures: %d", counts["expected_failure"])
	ui.Out("  failed:            %d", counts["failed"])
	ui.Out("  broken:            %d", counts["broken"])

	if reportVerbose && bad > 0 {
		ui.Out("")
		ui.Out("Non-passing test cases:")
		for _, record := range records {
			if record.Good() {
				continue
			}
			ui.Out("  %s:%s  ->  %s: %s", record.Program, record.TestCase,
				record.Result, record.Reason)
		}
	}

	return nil
}
