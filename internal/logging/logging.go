// Package logging builds the zap logger shared by every subcommand.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/zalepa/vacstat/internal/config"
)

// New returns a logger writing human-readable lines to stderr and, when
// cfg.File is set, JSON lines to a rotated log file. Every entry carries the
// run id. stop flushes and closes the outputs.
func New(cfg config.LogConfig, runID string) (l *zap.Logger, stop func(), err error) {
	return newLogger(cfg, runID, os.Stderr)
}

func newLogger(cfg config.LogConfig, runID string, console io.Writer) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	consoleEncoder := zap.NewDevelopmentEncoderConfig()
	consoleEncoder.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.AddSync(console), level),
	}

	var rotator *lumberjack.Logger
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		encoder := zap.NewProductionEncoderConfig()
		encoder.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoder), zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...)).With(zap.String("run_id", runID))
	stop := func() {
		_ = logger.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return logger, stop, nil
}

// NewRunID returns a fresh identifier for one invocation.
func NewRunID() string {
	return uuid.NewString()
}
