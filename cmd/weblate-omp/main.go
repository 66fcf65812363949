// Package main is the entry point of the weblate-omp addon runtime.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/omprussia/weblate-omp/cmd/weblate-omp/app"
	"github.com/omprussia/weblate-omp/internal/config"
)

// slog records reach zap through logr, where slog.LevelDebug becomes V(4).
const zapDebugLevel = zapcore.Level(-4)

// getLogLevel reads WEBLATE_OMP_LOG_LEVEL, falling back to LOG_LEVEL.
func getLogLevel() zapcore.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return zapDebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return zapcore.InfoLevel
	}
}

func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	// Keep stdout clean for commands that print data.
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	return cfg.Build()
}

func main() {
	level := zap.NewAtomicLevelAt(getLogLevel())
	zl, err := newLogger(level)
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	slog.SetDefault(slog.New(logr.ToSlogHandler(zapr.NewLogger(zl))))

	root := app.NewRootCmd(func(debug bool) {
		if debug {
			level.SetLevel(zapDebugLevel)
		}
	})
	if err := root.Execute(); err != nil {
		_ = zl.Sync()
		os.Exit(1)
	}
}
