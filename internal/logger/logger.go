package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a sugared zap logger carrying the component name.
type Logger struct {
	*zap.SugaredLogger
	component string
}

// New creates a logger. format is "json" or "console", level one of debug|info|warn|error.
func New(component, level, format string) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if strings.EqualFold(format, "json") {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zap.NewAtomicLevelAt(parseLevel(level)))
	zapLogger := zap.New(core, zap.AddCaller())

	return &Logger{
		SugaredLogger: zapLogger.Sugar().With("component", component),
		component:     component,
	}
}

// Nop discards everything. Used by tests and CLI commands that print to stdout.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), component: "nop"}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Named returns a child logger for a sub component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With("component", component),
		component:     component,
	}
}

// WithUser returns a logger with the acting user attached.
func (l *Logger) WithUser(userID uint) *Logger {
	return &Logger{
		SugaredLogger: l.With("user_id", userID),
		component:     l.component,
	}
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{
		SugaredLogger: l.With(args...),
		component:     l.component,
	}
}

// Audit logs destructive or security relevant operations.
func (l *Logger) Audit(msg string, keysAndValues ...interface{}) {
	l.With("audit", true, "at", time.Now().UTC()).Infow(msg, keysAndValues...)
}
