package bootstrap

import (
	"fmt"
	"os"

	"github.com/0x3a/crits/config"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger with colored console output. The
// returned level can be changed at runtime.
func InitLogger(development bool) (*zap.Logger, *zap.SugaredLogger, zap.AtomicLevel) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if development {
		opts = append(opts, zap.Development())
	}
	logger := zap.New(core, opts...)
	return logger, logger.Sugar(), level
}

// InitConfig loads the application configuration and applies its log level
func InitConfig(configFile string, level zap.AtomicLevel, sugar *zap.SugaredLogger) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if viper.ConfigFileUsed() == "" {
		sugar.Info("No config file found, using defaults and env vars")
	}
	applyLogLevel(level, cfg.Log.Level, sugar)

	sugar.Infow("Config loaded",
		"storage_backend", cfg.Storage.Backend,
		"cache_backend", cfg.Cache.Backend,
		"sqlite_path", cfg.GetSQLitePath(),
		"api_port", cfg.API.Port,
		"auth_enabled", cfg.Auth.Enabled)

	return cfg, nil
}

// WatchConfig reloads the log level whenever the config file changes. Other
// settings need a restart.
func WatchConfig(level zap.AtomicLevel, sugar *zap.SugaredLogger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		sugar.Infow("Config file changed", "file", e.Name, "op", e.Op.String())
		applyLogLevel(level, viper.GetString("log.level"), sugar)
	})
	viper.WatchConfig()
}

func applyLogLevel(level zap.AtomicLevel, name string, sugar *zap.SugaredLogger) {
	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		sugar.Warnw("Ignoring invalid log level", "level", name)
		return
	}
	if parsed != level.Level() {
		level.SetLevel(parsed)
		sugar.Infow("Log level set", "level", parsed.String())
	}
}
