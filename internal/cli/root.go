package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kyua-go/kyua/internal/errdefs"
)

// ErrTestsFailed is returned by the test command when at least one test
// case produced a failed or broken outcome. The entry point maps it to
// exit code 1.
var ErrTestsFailed = errors.New("not all tests passed")

var (
	kyuafilePath  string
	resultsPath   string
	keepArtifacts bool
	variables     []string
)

var rootCmd = &cobra.Command{
	Use:   "kyua",
	Short: "Kyua - testing framework front end",
	Long: `Kyua is a test execution harness: it enumerates the test cases of
test programs written against heterogeneous test frameworks (ATF, TAP and
plain binaries), runs each in a controlled subprocess, and classifies and
reports the outcomes.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&kyuafilePath, "kyuafile", "", "Path to the Kyuafile to load (default: ./Kyuafile.yaml)")
	rootCmd.PersistentFlags().StringVar(&resultsPath, "results", "", "Path to the results log (default: ~/.kyua/results.jsonl)")
	rootCmd.PersistentFlags().BoolVar(&keepArtifacts, "keep-artifacts", false, "Keep the control directory of non-passing test cases")
	rootCmd.PersistentFlags().StringArrayVarP(&variables, "variable", "v", nil, "Variable to export to tests as TEST_ENV_<K>=<V>; repeatable")
}

func Execute() error {
	return rootCmd.Execute()
}

// parseVariables turns the repeated --variable K=V flags into a map.
func parseVariables(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(raw))
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, errdefs.Usage("Invalid variable '%s'; expected K=V", entry)
		}
		vars[key] = value
	}
	return vars, nil
}
