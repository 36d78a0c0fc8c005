// Package logging sets up the process-wide zap logger. Log output goes to a
// rotating file when one is configured, since the annotator owns the terminal.
package logging

import (
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes where and how to log
type Config struct {
	Mode       string
	File       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
	file   *lumberjack.Logger
)

// L returns the process logger. It discards everything until Init runs.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init builds the process logger. Mode "release" logs JSON at info level,
// anything else logs console text at debug level.
func Init(c Config) error {
	var encCfg zapcore.EncoderConfig
	var level zapcore.Level
	var enc zapcore.Encoder
	if c.Mode == "release" {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		level = zapcore.InfoLevel
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
		if c.File == "" {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer
	var lj *lumberjack.Logger
	if c.File != "" {
		lj = &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB, // megabytes
			MaxAge:     c.MaxAgeDays,
			MaxBackups: c.MaxBackups,
		}
		sink = zapcore.AddSync(lj)
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	l := zap.New(zapcore.NewCore(enc, sink, level), zap.AddCaller())

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
	}
	logger, file = l, lj
	return nil
}

// Set replaces the process logger, mainly for tests
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Sync flushes buffered entries and closes the log file
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
	if file != nil {
		file.Close()
		file = nil
	}
}
