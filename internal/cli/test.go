package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/kyua-go/kyua/internal/config"
	"github.com/kyua-go/kyua/internal/engine"
	"github.com/kyua-go/kyua/internal/kyuafile"
	"github.com/kyua-go/kyua/internal/logger"
	"github.com/kyua-go/kyua/internal/model"
)

// listFailureCase is the pseudo test case recorded when a program's case
// list cannot be retrieved at all.
const listFailureCase = "__test_cases_list__"

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the tests described by the Kyuafile",
	Long: `Run every test case of every test program named by the Kyuafile,
one at a time, and record the classified results.

Example:
  kyua test
  kyua test --kyuafile ./Kyuafile.yaml -v LANG=C --keep-artifacts`,
	RunE: testCommand,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func testCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(kyuafilePath, resultsPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	vars, err := parseVariables(variables)
	if err != nil {
		return err
	}

	programs, err := kyuafile.Load(cfg.KyuafilePath)
	if err != nil {
		return err
	}

	resultsLog, err := logger.New(cfg.ResultsPath)
	if err != nil {
		return fmt.Errorf("failed to open results log: %w", err)
	}
	defer resultsLog.Close()

	runner, err := engine.NewRunner("", vars, keepArtifacts)
	if err != nil {
		return err
	}
	defer runner.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ui := NewUI()
	tally := make(map[model.ResultKind]int)
	bad := 0
	total := 0

	record := func(tp *model.TestProgram, caseName string, result model.Result, elapsed time.Duration) {
		total++
		tally[result.Kind]++
		if !result.Good() {
			bad++
		}
		ui.Out("%s:%s  ->  %s", tp.Name(), caseName, result)

		entry := logger.Record{
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Program:    tp.Path,
			TestCase:   caseName,
			Result:     string(result.Kind),
			Reason:     result.Reason,
			DurationMs: elapsed.Milliseconds(),
		}
		if keepArtifacts && !result.Good() {
			entry.ControlDir = runner.WorkDir()
		}
		if err := resultsLog.Append(entry); err != nil {
			ui.Err("kyua: warning: failed to write results log: %v", err)
		}
	}

	interrupted := false
	for _, tp := range programs {
		if interrupted || ctx.Err() != nil {
			break
		}

		cases, err := runner.List(ctx, tp)
		if err != nil {
			if errors.Is(err, engine.ErrInterrupted) {
				break
			}
			// A program whose list cannot be retrieved is skipped; the
			// failure itself is recorded as a broken pseudo case.
			record(tp, listFailureCase, model.Broken(err.Error()), 0)
			continue
		}
		tp.TestCases = cases

		for _, tc := range cases {
			start := time.Now()
			result, err := runner.Run(ctx, tp, tc)
			if err != nil && !errors.Is(err, engine.ErrInterrupted) {
				return err
			}
			record(tp, tc.ID.Name, result, time.Since(start))
			if errors.Is(err, engine.ErrInterrupted) {
				interrupted = true
				break
			}
		}
	}

	ui.Separator()
	good := total - bad
	ui.Out("%d/%d passed (%d failed, %d broken, %d skipped, %d expected failures)",
		good, total, tally[model.ResultFailed], tally[model.ResultBroken],
		tally[model.ResultSkipped], tally[model.ResultExpectedFailure])
	ui.Out("Results saved to %s", cfg.ResultsPath)

	if bad > 0 {
		cmd.SilenceUsage = true
		return ErrTestsFailed
	}
	return nil
}
