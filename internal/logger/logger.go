package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init builds the process-wide logger. Production environments get the JSON
// encoder, everything else the human readable console encoder.
func Init(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	Set(l)
	return l, nil
}

// Set replaces the global logger. Tests use it to install zaptest or observer loggers.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// L returns the global logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// wrapped skips the helper frame so callers show up in the log line.
func wrapped() *zap.Logger { return L().WithOptions(zap.AddCallerSkip(1)) }

func Debug(msg string, fields ...zap.Field) { wrapped().Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { wrapped().Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { wrapped().Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { wrapped().Error(msg, fields...) }

// Sync flushes buffered entries; errors on stdout/stderr sync are ignored.
func Sync() {
	_ = L().Sync()
}
