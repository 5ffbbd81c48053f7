package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendTUI, p.Console)
	assert.Equal(t, "info", p.Verbosity)
	assert.Empty(t, p.FixturePath)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yml")
	content := "console: plain\nverbosity: debug\nfixture_path: fixtures/enroll.json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendPlain, p.Console)
	assert.Equal(t, "debug", p.Verbosity)
	assert.Equal(t, "fixtures/enroll.json", p.FixturePath)
}

func TestLoadMissingFilePathFallsBackToDefaults(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)
}

func TestValidateRejectsUnrecognizedBackend(t *testing.T) {
	p := Defaults()
	p.Console = "graphical"
	assert.Error(t, p.Validate())
}

func TestValidateRequiresScriptPathForScriptedBackend(t *testing.T) {
	p := Defaults()
	p.Console = BackendScripted
	assert.Error(t, p.Validate())

	p.ScriptPath = "script.json"
	assert.NoError(t, p.Validate())
}

func TestValidateRejectsUnrecognizedVerbosity(t *testing.T) {
	p := Defaults()
	p.Verbosity = "trace"
	assert.Error(t, p.Validate())
}
