// Package logging builds the zap loggers used by the CLI, TUI and fake server.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Level is debug|info|warn|error. Empty means info.
	Level string
	// File receives JSON lines when set.
	File string
	// Console receives human-readable lines when File is empty. Nil discards.
	Console io.Writer
}

// New returns a logger and a func that flushes and closes its output.
func New(opts Options) (*zap.Logger, func(), error) {
	lvl := zapcore.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		l, err := zapcore.ParseLevel(s)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		lvl = l
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), lvl)
		log := zap.New(core)
		return log, func() {
			_ = log.Sync()
			_ = f.Close()
		}, nil
	case opts.Console != nil:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encCfg.TimeKey = ""
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(opts.Console), lvl)
		log := zap.New(core)
		return log, func() { _ = log.Sync() }, nil
	default:
		return zap.NewNop(), func() {}, nil
	}
}
