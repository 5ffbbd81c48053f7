package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mokctl/internal/actions"
	"mokctl/internal/authengine"
	"mokctl/internal/console"
	"mokctl/internal/console/plain"
	"mokctl/internal/console/scripted"
	"mokctl/internal/console/tui"
	"mokctl/internal/diag"
	"mokctl/internal/fileenroll"
	"mokctl/internal/menu"
	"mokctl/internal/rng"
	"mokctl/internal/shimlock"
	"mokctl/internal/varstore"
)

var espRoot string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one MOK management session against the configured VarStore",
	Long: `run wires the console backend named by the active profile (tui,
plain, or scripted) to the core request/commit protocol and drives one
full session: load pending requests, gate on the MOK password if one is
configured, loop the menu, and report the outcome -- the same sequence
spec.md §2 describes for the production firmware entry point.`,
	RunE: runSession,
}

func init() {
	runCmd.Flags().StringVar(&espRoot, "esp", ".", "directory FileEnroll's directory browser is rooted at")
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := diag.New(os.Stderr, verbosityLevel(profile.Verbosity))

	if err := rng.Seed(); err != nil {
		return err
	}

	store, err := buildStore()
	if err != nil {
		return err
	}

	if profile.FixturePath != "" {
		logger.Infof("loading fixture %s", profile.FixturePath)
		if err := loadFixture(ctx, store, profile.FixturePath); err != nil {
			return err
		}
	}

	c, stop, err := buildConsole()
	if err != nil {
		return err
	}
	defer stop()

	auth := authengine.New(c)
	shim := shimlock.SoftwareHasher{}
	eng := actions.New(store, c, auth, shim)

	browser := fileenroll.New(os.DirFS(espRoot), c, eng)
	ctrl := menu.New(store, c, auth, eng, browser.Enroll)

	runErr := ctrl.Run(ctx)

	switch {
	case runErr == nil:
		logger.Infof("operator chose Continue boot")
		fmt.Println("Continue boot")
		return nil
	case errors.Is(runErr, actions.Reset):
		logger.Infof("session committed, warm reset requested")
		fmt.Println("Reset requested")
		return nil
	default:
		return runErr
	}
}

func buildStore() (varstore.Store, error) {
	if profile.SnapshotPath == "" {
		return varstore.NewMemStore(), nil
	}
	return varstore.OpenFileStore(profile.SnapshotPath)
}

func buildConsole() (console.Port, func(), error) {
	switch profile.Console {
	case "", "tui":
		t := tui.New()
		done := make(chan struct{})
		go func() {
			_ = t.Run()
			close(done)
		}()
		return t, func() { t.Close(); <-done }, nil
	case "plain":
		p := plain.New(os.Stdin, os.Stdout, int(os.Stdin.Fd()))
		return p, func() {}, nil
	case "scripted":
		s, err := scripted.Load(profile.ScriptPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unrecognized console backend %q", profile.Console)
	}
}

func verbosityLevel(v string) diag.Level {
	switch v {
	case "debug":
		return diag.LevelDebug
	case "warn":
		return diag.LevelWarn
	default:
		return diag.LevelInfo
	}
}
