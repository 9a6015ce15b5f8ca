package cmd

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/pkgprobe/internal/config"
	"github.com/quantmind-br/pkgprobe/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Paths: config.PathsConfig{
			DataDir:   dir,
			CacheFile: filepath.Join(dir, "reports.db"),
			LogFile:   "",
			IconsDir:  filepath.Join(dir, "icons"),
		},
		Analysis: config.AnalysisConfig{MsiArchitecture: "x64", CacheReports: true},
		HTTP:     config.HTTPConfig{TimeoutSeconds: 5},
		Logging:  config.LoggingConfig{Level: "info", Color: "never"},
	}
}

func testLogger() *zerolog.Logger {
	return logging.NewTestLogger(io.Discard)
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd(testConfig(t), testLogger(), "test")
	require.NotNil(t, root)
	assert.Equal(t, "pkgprobe", root.Use)

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"analyze", "icons", "cache", "resolve", "completion", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmdHelp(t *testing.T) {
	root := NewRootCmd(testConfig(t), testLogger(), "test")
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--help"})

	assert.NoError(t, root.Execute())
}

func TestRootCmdUnknownCommand(t *testing.T) {
	root := NewRootCmd(testConfig(t), testLogger(), "test")
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"definitely-not-a-command"})

	assert.Error(t, root.Execute())
}
