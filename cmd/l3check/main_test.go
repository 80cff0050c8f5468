package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/l3check/pkg/config"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringP("config", "c", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().Bool("log-json", false, "")
	addDispatchFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestApplyDispatchFlags(t *testing.T) {
	cmd := newTestCommand(t, "--local", "--workers", "6", "--filter", "l3_agent")
	cfg := config.Default()

	applyDispatchFlags(cmd, cfg)

	assert.True(t, cfg.Dispatch.Local)
	assert.Equal(t, 6, cfg.Dispatch.Workers)
	assert.Equal(t, "l3_agent", cfg.Containerd.Filter)
}

func TestApplyDispatchFlagsUnchanged(t *testing.T) {
	cmd := newTestCommand(t)
	cfg := config.Default()
	cfg.Dispatch.Workers = 3

	applyDispatchFlags(cmd, cfg)

	assert.False(t, cfg.Dispatch.Local)
	assert.Equal(t, 3, cfg.Dispatch.Workers)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	path := filepath.Join(dir, "l3check.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))

	cmd := newTestCommand(t, "--config", path, "--log-level", "debug")
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestNewDispatcherLocal(t *testing.T) {
	cfg := config.Default()
	cfg.Dispatch.Local = true
	cfg.Dispatch.LocalName = "net1"

	d, release, err := newDispatcher(cfg)
	require.NoError(t, err)
	defer release()

	assert.NotNil(t, d)
}
