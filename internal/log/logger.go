// Package log builds the process logger from the log configuration.
package log

import (
	"fmt"
	"os"

	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/LeJamon/goMarble/internal/config"
)

// NewLogger returns a logger writing JSON lines to cfg.File and colored
// text to stdout when cfg.Console is set. It also replaces the zap globals.
// The returned close function syncs the logger and closes the file.
func NewLogger(cfg config.LogConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	pe := zap.NewProductionEncoderConfig()
	pe.EncodeTime = zapcore.ISO8601TimeEncoder
	pe.MessageKey = "message"
	pe.TimeKey = "time"
	fileEncoder := zapcore.NewJSONEncoder(pe)

	pe.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(pe)

	var cores []zapcore.Core
	var file *os.File
	if cfg.File != "" {
		file, err = os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(file), level))
	}
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(colorable.NewColorableStdout()), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	zap.ReplaceGlobals(logger)

	closeFn := func() {
		_ = logger.Sync()
		if file != nil {
			_ = file.Close()
		}
	}
	return logger, closeFn, nil
}

// ApplyFlags adjusts cfg for the --debug and --quiet command line flags.
// Quiet drops console output unless no log file is configured.
func ApplyFlags(cfg config.LogConfig, debug, quiet bool) config.LogConfig {
	if debug {
		cfg.Level = "debug"
	}
	if quiet && cfg.File != "" {
		cfg.Console = false
	}
	return cfg
}
