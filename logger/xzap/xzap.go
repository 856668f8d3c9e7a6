package xzap

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Conf is the logging section of the service config.
type Conf struct {
	Mode       string `toml:"mode" mapstructure:"mode" json:"mode"` // console or file
	Path       string `toml:"path" mapstructure:"path" json:"path"`
	Level      string `toml:"level" mapstructure:"level" json:"level"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days" json:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress" json:"compress"`
}

// Logger wraps a zap logger so call sites can do
// xzap.WithContext(ctx).Info("msg", zap.String("k", "v")).
type Logger struct {
	l *zap.Logger
}

var (
	setupOnce sync.Once
	global    = &Logger{l: zap.NewNop()}
)

// SetUp builds the process-wide logger from config. Safe to call more than
// once; only the first call wins.
func SetUp(c Conf) (*Logger, error) {
	var err error
	setupOnce.Do(func() {
		var logger *zap.Logger
		logger, err = build(c)
		if err != nil {
			return
		}
		zap.ReplaceGlobals(logger)
		global = &Logger{l: logger}
	})
	if err != nil {
		return nil, err
	}
	return global, nil
}

func build(c Conf) (*zap.Logger, error) {
	level := zap.InfoLevel
	if c.Level != "" {
		if err := level.Set(c.Level); err != nil {
			return nil, err
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.MessageKey = "message"
	encCfg.TimeKey = "time"

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level),
	}
	if c.Mode == "file" && c.Path != "" {
		sink := &lumberjack.Logger{
			Filename:   c.Path,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
			Compress:   c.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// WithContext returns the logger for the given context. The context is kept
// for future trace propagation; today it selects the global logger.
func WithContext(_ context.Context) *Logger {
	return global
}

func (x *Logger) Debug(msg string, fields ...zap.Field) { x.l.Debug(msg, fields...) }
func (x *Logger) Info(msg string, fields ...zap.Field)  { x.l.Info(msg, fields...) }
func (x *Logger) Warn(msg string, fields ...zap.Field)  { x.l.Warn(msg, fields...) }
func (x *Logger) Error(msg string, fields ...zap.Field) { x.l.Error(msg, fields...) }
