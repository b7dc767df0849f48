package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release identifier reported by the version command.
const Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kyua %s\n", Version)
		fmt.Printf("Supported test interfaces: atf, tap, plain\n")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
