package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/struktur/log"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cmd := &cobra.Command{}
	cfg.RegisterFlags(cmd.Flags())

	assert.Equal(t, "struktur.yaml", cfg.ConfigPath)
	assert.Equal(t, "", cfg.Engine)
	assert.Equal(t, string(log.LevelInfo), cfg.LogLevel)
	assert.Equal(t, string(log.FormatText), cfg.LogFormat)
	assert.False(t, cfg.Progress)
}

func TestConfig_RegisterFlags_ParsesArgs(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cmd := &cobra.Command{}
	cfg.RegisterFlags(cmd.Flags())

	require.NoError(t, cmd.Flags().Parse([]string{
		"--config", "custom.yaml",
		"--engine", "gotemplate",
		"--log-level", "debug",
		"--log-format", "json",
		"--progress",
	}))

	assert.Equal(t, "custom.yaml", cfg.ConfigPath)
	assert.Equal(t, "gotemplate", cfg.Engine)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Progress)
}

func TestConfig_RegisterCompletions_NoError(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cmd := &cobra.Command{}
	cfg.RegisterFlags(cmd.Flags())

	require.NoError(t, cfg.RegisterCompletions(cmd))
}
