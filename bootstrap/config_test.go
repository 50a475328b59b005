package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestInitLogger_LevelIsAdjustable(t *testing.T) {
	logger, sugar, level := InitLogger(false)
	require.NotNil(t, logger)
	require.NotNil(t, sugar)
	assert.Equal(t, zapcore.InfoLevel, level.Level())
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	level.SetLevel(zapcore.DebugLevel)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestInitConfig_AppliesLogLevel(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := writeConfig(t, dir, "log:\n  level: warn\ndata_paths:\n  data_dir: "+dir+"\n")

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg, err := InitConfig(path, level, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, zapcore.WarnLevel, level.Level())
}

func TestInitConfig_MissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := InitConfig(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewAtomicLevel(), zaptest.NewLogger(t).Sugar())
	assert.Error(t, err)
}

func TestWatchConfig_ReloadsLogLevel(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := writeConfig(t, dir, "log:\n  level: info\n")
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	_, err := InitConfig(path, level, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	WatchConfig(level, zap.NewNop().Sugar())
	writeConfig(t, dir, "log:\n  level: debug\n")

	assert.Eventually(t, func() bool {
		return level.Level() == zapcore.DebugLevel
	}, 5*time.Second, 50*time.Millisecond)
}

func TestApplyLogLevel_IgnoresInvalid(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	applyLogLevel(level, "loud", zap.NewNop().Sugar())
	assert.Equal(t, zapcore.ErrorLevel, level.Level())
}

func TestApp_Lifecycle(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := writeConfig(t, dir, "data_paths:\n  data_dir: "+dir+"\napi:\n  port: 0\ncache:\n  backend: lru\n")

	app, err := NewApp(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, app.Service)
	assert.FileExists(t, filepath.Join(dir, "indicators.db"))

	require.NoError(t, app.Start(context.Background()))
	require.NotNil(t, app.APIServer)

	app.Shutdown()
	app.Shutdown()
}
