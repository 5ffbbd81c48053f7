// Package cmd is mokctl-sim's cobra command tree: a developer/test harness
// that drives the same core packages (internal/actions, internal/menu,
// internal/requests, ...) the production mokctl binary uses, but against a
// file-backed or in-memory VarStore and a real terminal, so the menu state
// machine can be exercised interactively and in regression tests on a
// workstation (SPEC_FULL.md §1). Grounded on the teacher's cmd/root.go:
// one persistent rootCmd, a --config flag read through internal/config,
// PersistentPreRunE used for cross-cutting setup.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mokctl/internal/config"
)

var (
	cfgFile string
	profile config.Profile

	rootCmd = &cobra.Command{
		Use:   "mokctl-sim",
		Short: "Developer harness for the MOK management core packages",
		Long: `mokctl-sim drives the same request/commit protocol, signature-list
codec, authentication engine, and menu state machine the production
mokctl firmware application uses, against a file-backed or in-memory
variable store and a real terminal -- so the core logic can be run and
regression-tested on a workstation instead of only inside firmware.

It is a test/dev aid, not a remote-administration surface: it never talks
to a remote host or persists anything outside the variable snapshot file
you point it at.`,
		PersistentPreRunE: loadProfile,
		SilenceUsage:      true,
	}
)

func loadProfile(cmd *cobra.Command, _ []string) error {
	p, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	profile = p
	return nil
}

// Execute runs the cobra command tree, exiting the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "simulator profile YAML file")
}
