package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, c.DefaultK)
	assert.Equal(t, int64(42), c.DefaultSeed)
	assert.Equal(t, 300, c.MaxIter)
	assert.Equal(t, 4, c.BatchConcurrency)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format)
	assert.Equal(t, filepath.Join(home, ".citycluster", "profiles"), c.ProfilesDir)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Global{
		ProfilesDir:      "/tmp/p",
		Log:              LogConfig{Level: "debug", Format: "json"},
		DefaultK:         5,
		DefaultSeed:      7,
		MaxIter:          50,
		MissingTokens:    []string{"n/a"},
		BatchConcurrency: 2,
	}
	require.NoError(t, Save(in, path))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_k: 4\nlog:\n  level: warn\n"), 0o644))
	t.Setenv("CITYCLUSTER_DEFAULT_K", "6")
	t.Setenv("CITYCLUSTER_LOG_LEVEL", "error")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, c.DefaultK)
	assert.Equal(t, "error", c.Log.Level)
}

func TestSaveDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, Save(&Global{DefaultK: 2}, ""))
	_, err := os.Stat(filepath.Join(home, ".citycluster", "config.yaml"))
	assert.NoError(t, err)
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	log, err := InitLogger(LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.Same(t, log, zap.L())

	log, err = InitLogger(LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	_, err = InitLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = InitLogger(LogConfig{Format: "xml"})
	assert.Error(t, err)
}
