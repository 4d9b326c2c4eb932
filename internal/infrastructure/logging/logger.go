package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the studio's zap logger. Components get named children.
type Logger struct {
	*zap.Logger
}

// Config selects level, format and destination.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // colored console output with stack traces on warn
	Output      string // "stderr", "stdout" or a file path
}

// DefaultConfig logs JSON at info to stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Output: "stderr"}
}

// DevelopmentConfig logs colored console lines at debug to stderr.
func DevelopmentConfig() Config {
	return Config{Level: "debug", Development: true, Output: "stderr"}
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	out := cfg.Output
	if out == "" {
		out = "stderr"
	}

	zc := zap.NewProductionConfig()
	zc.EncoderConfig = jsonEncoding()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig = consoleEncoding()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.Sampling = nil

	z, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: z}, nil
}

// NewDefault returns a production logger, or a no-op logger if stderr
// cannot be opened.
func NewDefault() *Logger {
	l, err := New(DefaultConfig())
	if err != nil {
		return NewNop()
	}
	return l
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Component returns a child logger tagged with a component name
// (store, dispatch, preview, posterapi, http, ws). Safe on nil.
func (l *Logger) Component(name string) *Logger {
	if l == nil || l.Logger == nil {
		return NewNop()
	}
	return &Logger{Logger: l.Logger.Named(name)}
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

func jsonEncoding() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.NameKey = "component"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	return ec
}

func consoleEncoding() zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder
	return ec
}
