package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/GriffinCanCode/AppFeed/backend/internal/api/http"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "appfeed "+apihttp.Version+"\n", out.String())
}

func parseFlags(t *testing.T, args ...string) (*pflag.FlagSet, *serveOptions) {
	t.Helper()
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	opts := &serveOptions{}
	bindServeFlags(fs, opts)
	require.NoError(t, fs.Parse(args))
	return fs, opts
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9000")

	fs, opts := parseFlags(t,
		"--port", "7000",
		"--storage", "badger",
		"--data", "/var/lib/appfeed",
		"--no-seed",
	)
	cfg, err := loadConfig(fs, opts)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/appfeed", cfg.Storage.Path)
	assert.False(t, cfg.Seed.Enabled)
	assert.Equal(t, "mock", cfg.Generator.Provider)
}

func TestLoadConfigEnvWithoutFlags(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9000")

	fs, opts := parseFlags(t)
	cfg, err := loadConfig(fs, opts)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.Seed.Enabled)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	path := filepath.Join(t.TempDir(), "appfeed.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = \"8181\"\n"), 0o644))

	fs, opts := parseFlags(t, "--config", path)
	cfg, err := loadConfig(fs, opts)
	require.NoError(t, err)
	assert.Equal(t, "8181", cfg.Server.Port)
}

func TestLoadConfigRejectsBadGenerator(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	fs, opts := parseFlags(t, "--generator", "oracle")
	_, err := loadConfig(fs, opts)
	assert.Error(t, err)
}
