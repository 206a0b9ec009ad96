// Package logger exposes the map-field Logger used by every office component.
package logger

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger defines the minimal logging interface used across the office services.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	With(fields map[string]interface{}) Logger
}

// Settings mirrors the logging section of the configuration plus the
// process identity stamped on every entry.
type Settings struct {
	Level       string
	Format      string
	Output      string
	Service     string
	Environment string
}

// New builds a zap logger for the given level and format ("json" or console).
func New(levelStr, format string) *zap.Logger {
	return Build(Settings{Level: levelStr, Format: format})
}

// Build falls back to stdout at info level on bad settings.
func Build(s Settings) *zap.Logger {
	level, err := zapcore.ParseLevel(s.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if s.Format == "json" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	switch s.Output {
	case "", "stdout":
		cfg.OutputPaths = []string{"stdout"}
	case "stderr":
		cfg.OutputPaths = []string{"stderr"}
	default:
		cfg.OutputPaths = []string{s.Output}
	}

	initial := map[string]interface{}{}
	if s.Service != "" {
		initial["service"] = s.Service
	}
	if s.Environment != "" {
		initial["environment"] = s.Environment
	}
	if len(initial) > 0 {
		cfg.InitialFields = initial
	}

	l, err := cfg.Build()
	if err != nil {
		return zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(os.Stdout),
			zapcore.InfoLevel,
		)).With(zap.String("loggerFallback", err.Error()))
	}
	return l
}

type zapLogger struct {
	l *zap.Logger
}

func (z *zapLogger) Debug(msg string, fields map[string]interface{}) {
	z.l.Debug(msg, toZapFields(fields)...)
}

func (z *zapLogger) Info(msg string, fields map[string]interface{}) {
	z.l.Info(msg, toZapFields(fields)...)
}

func (z *zapLogger) Warn(msg string, fields map[string]interface{}) {
	z.l.Warn(msg, toZapFields(fields)...)
}

func (z *zapLogger) Error(msg string, fields map[string]interface{}) {
	z.l.Error(msg, toZapFields(fields)...)
}

func (z *zapLogger) WithFields(fields map[string]interface{}) Logger {
	return &zapLogger{l: z.l.With(toZapFields(fields)...)}
}

func (z *zapLogger) WithError(err error) Logger {
	return &zapLogger{l: z.l.With(zap.Error(err))}
}

func (z *zapLogger) With(fields map[string]interface{}) Logger {
	return z.WithFields(fields)
}

// toZapFields keeps errors as named error fields so stack and message survive encoding.
func toZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case error:
			out = append(out, zap.NamedError(k, val))
		case string:
			out = append(out, zap.String(k, val))
		case int64:
			out = append(out, zap.Int64(k, val))
		case int:
			out = append(out, zap.Int(k, val))
		default:
			out = append(out, zap.Any(k, val))
		}
	}
	return out
}

// NewZapAdapter wraps an existing *zap.Logger to implement the Logger interface
func NewZapAdapter(l *zap.Logger) Logger {
	return &zapLogger{l: l}
}

func NewTestLogger(t testing.TB) Logger {
	return &zapLogger{l: zaptest.NewLogger(t)}
}

func NewNoOpLogger() Logger {
	return &zapLogger{l: zap.NewNop()}
}

// Component returns a child logger tagged with the owning component name.
func Component(l Logger, name string) Logger {
	if l == nil {
		l = NewNoOpLogger()
	}
	return l.WithFields(map[string]interface{}{"component": name})
}
