package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jjjimenez100/backend-coding-test/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging_FileSink(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "rides.log")
	cfg := config.Config{
		Environment: "production",
		Logging:     config.LoggingConfig{Level: "warn", File: path},
	}

	closer, err := setupLogging(cfg)
	require.NoError(t, err)
	require.NotNil(t, closer)

	log.Info().Msg("dropped below level")
	log.Warn().Str("component", "test").Msg("kept")
	closeLog(closer)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped below level")
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestSetupLogging_NoFile(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	closer, err := setupLogging(config.Config{Environment: "production", Logging: config.LoggingConfig{Level: "bogus"}})
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestSetupLogging_BadFile(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	_, err := setupLogging(config.Config{Logging: config.LoggingConfig{File: filepath.Join(t.TempDir(), "missing", "rides.log")}})
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.Contains(t, out.String(), "Version:    dev")
}
