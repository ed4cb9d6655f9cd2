package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig selects level, sink and encoding for NewLogger
type LoggerConfig struct {
	Level       string // debug, info, warn, error; anything else means info
	OutputPath  string // stdout, stderr or a file that is appended to
	Format      string // json or console
	ServiceName string
}

// NewLogger builds the process logger. Errors carry a stack trace.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	sink := cfg.OutputPath
	if sink == "" {
		sink = "stdout"
	}
	if sink != "stdout" && sink != "stderr" {
		if err := os.MkdirAll(filepath.Dir(sink), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	zcfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          "console",
		EncoderConfig:     zap.NewDevelopmentEncoderConfig(),
		OutputPaths:       []string{sink},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	if cfg.Format == "json" {
		zcfg.Encoding = "json"
		zcfg.EncoderConfig = zap.NewProductionEncoderConfig()
	} else {
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.ServiceName != "" {
		zcfg.InitialFields = map[string]interface{}{"service": cfg.ServiceName}
	}

	return zcfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// KeyValueLogger exposes a zap logger through the Info/Warn/Error key-value
// methods the services and HTTP layer log with
type KeyValueLogger struct {
	sugar *zap.SugaredLogger
}

// NewKeyValueLogger wraps logger; reported callers point at the service code
func NewKeyValueLogger(logger *zap.Logger) *KeyValueLogger {
	return &KeyValueLogger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *KeyValueLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *KeyValueLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *KeyValueLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}
