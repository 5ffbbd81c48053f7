// Package config loads mokctl-sim's run profile: which fixture to preload,
// which console backend to drive the session with, the variable-snapshot
// path to persist to, and log verbosity. The production mokctl binary
// takes no configuration at all (spec.md §6: "no arguments, no
// environment"); this package exists purely for the simulator, viper-
// backed exactly the way the teacher's internal/config.go loads
// cmd/tui's terminal/keybinding settings, reduced to the handful of knobs
// a fixture-driven dev/test session needs instead of a themeable
// multi-pane UI's settings surface.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ConsoleBackend selects which console.Port implementation mokctl-sim
// wires up.
type ConsoleBackend string

const (
	// BackendTUI drives the session through internal/console/tui (tview).
	BackendTUI ConsoleBackend = "tui"
	// BackendPlain drives the session through internal/console/plain (a
	// line-oriented ANSI console), useful under CI or a plain terminal
	// that can't host tview.
	BackendPlain ConsoleBackend = "plain"
	// BackendScripted drives the session through a fixture-supplied script
	// of canned answers instead of live operator input, for regression
	// tests that must run unattended.
	BackendScripted ConsoleBackend = "scripted"
)

// Profile is the full set of simulator run settings.
type Profile struct {
	// FixturePath, if set, is a JSON file of pre-staged variables loaded
	// into the VarStore before the session starts (see internal/requests'
	// discovery scenarios in spec.md §8).
	FixturePath string `mapstructure:"fixture_path"`

	// SnapshotPath is where the file-backed VarStore persists its state
	// between runs. Empty means run against a throwaway in-memory store
	// instead of internal/varstore.FileStore.
	SnapshotPath string `mapstructure:"snapshot_path"`

	// Console selects the console.Port backend.
	Console ConsoleBackend `mapstructure:"console"`

	// ScriptPath, required when Console == BackendScripted, is a JSON file
	// of canned menu/yes-no/password/char answers.
	ScriptPath string `mapstructure:"script_path"`

	// Verbosity is one of "warn", "info", "debug" (see internal/diag).
	Verbosity string `mapstructure:"verbosity"`
}

// Defaults returns the simulator's baseline profile: an in-memory store,
// the tui console backend, info-level logging, no preloaded fixture.
func Defaults() Profile {
	return Profile{
		Console:   BackendTUI,
		Verbosity: "info",
	}
}

// Load reads profile settings from, in ascending priority: Defaults(), a
// YAML file at path (if non-empty and present), then MOKCTL_SIM_*
// environment variables -- the same viper precedence order
// internal/config's teacher version used for pass-cli's config.yml plus
// env overrides.
func Load(path string) (Profile, error) {
	v := viper.New()
	v.SetEnvPrefix("MOKCTL_SIM")
	v.AutomaticEnv()

	def := Defaults()
	v.SetDefault("console", string(def.Console))
	v.SetDefault("verbosity", def.Verbosity)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Profile{}, fmt.Errorf("read simulator config %s: %w", path, err)
			}
		}
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return Profile{}, fmt.Errorf("parse simulator config: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks the profile is internally consistent.
func (p Profile) Validate() error {
	switch p.Console {
	case BackendTUI, BackendPlain, BackendScripted:
	default:
		return fmt.Errorf("unrecognized console backend %q", p.Console)
	}
	if p.Console == BackendScripted && p.ScriptPath == "" {
		return fmt.Errorf("console backend %q requires script_path", BackendScripted)
	}
	switch p.Verbosity {
	case "", "warn", "info", "debug":
	default:
		return fmt.Errorf("unrecognized verbosity %q", p.Verbosity)
	}
	return nil
}
