package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time, matching the teacher's
// cmd/version.go pattern.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mokctl-sim version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
