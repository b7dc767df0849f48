package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kyua-go/kyua/internal/config"
	"github.com/kyua-go/kyua/internal/engine"
	"github.com/kyua-go/kyua/internal/kyuafile"
)

var listVerbose bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the test cases described by the Kyuafile",
	Long: `Enumerate every test case of every test program named by the
Kyuafile, without running any of them.

Example:
  kyua list
  kyua list --kyuafile ./Kyuafile.yaml -V`,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "V", false, "Also show test case properties")
	rootCmd.AddCommand(listCmd)
}

func listCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(kyuafilePath, resultsPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	programs, err := kyuafile.Load(cfg.KyuafilePath)
	if err != nil {
		return err
	}

	runner, err := engine.NewRunner("", nil, false)
	if err != nil {
		return err
	}
	defer runner.Cleanup()

	ui := NewUI()
	for _, tp := range programs {
		cases, err := runner.List(context.Background(), tp)
		if err != nil {
			ui.Err("kyua: warning: cannot load test cases of %s: %v", tp.Path, err)
			continue
		}

		for _, tc := range cases {
			ui.Out("%s:%s", tp.Name(), tc.ID.Name)
			if !listVerbose {
				continue
			}
			ui.Out("    interface = %s", tp.Interface)
			keys := make([]string, 0, len(tc.Properties))
			for key := range tc.Properties {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				ui.Out("    %s = %s", key, tc.Properties[key])
			}
		}
	}

	return nil
}
