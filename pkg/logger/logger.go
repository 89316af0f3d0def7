package logger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dreschagin/deploy-board/internal/application/port"
)

// Logger is a thin key/value wrapper around zap's sugared logger.
type Logger struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// New builds a JSON logger suitable for production output.
func New(level string) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return build(cfg, level)
}

// NewDevelopment builds a human-readable console logger.
func NewDevelopment(level string) *Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return build(cfg, level)
}

func build(cfg zap.Config, level string) *Logger {
	atomic := zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Level = atomic
	cfg.DisableStacktrace = true

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}

	return &Logger{
		base:  base,
		sugar: base.Sugar(),
		level: atomic,
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogPublisher mirrors every entry that passes the level filter to an
// external log sink.
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	if publisher == nil {
		return
	}
	core := zapcore.NewTee(l.base.Core(), &publisherCore{
		LevelEnabler: l.level,
		publisher:    publisher,
	})
	l.sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnw(msg, args...)
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.sugar.Errorw(msg, args...)
}

// Sync flushes buffered zap output.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// publisherCore converts zap entries into port.LogEntry values.
type publisherCore struct {
	zapcore.LevelEnabler
	publisher port.LogPublisher
	fields    []zapcore.Field
}

func (c *publisherCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &publisherCore{LevelEnabler: c.LevelEnabler, publisher: c.publisher, fields: merged}
}

func (c *publisherCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *publisherCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return c.publisher.Publish(ctx, port.LogEntry{
		Timestamp: entry.Time,
		Level:     mapLevel(entry.Level),
		Message:   entry.Message,
		Fields:    enc.Fields,
	})
}

func (c *publisherCore) Sync() error {
	return nil
}

func mapLevel(level zapcore.Level) port.LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return port.LogLevelDebug
	case zapcore.InfoLevel:
		return port.LogLevelInfo
	case zapcore.WarnLevel:
		return port.LogLevelWarn
	default:
		return port.LogLevelError
	}
}
