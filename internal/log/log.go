package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger = zap.NewNop()

func Get() *zap.Logger {
	return defaultLogger
}

// Set replaces the process-wide logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	defaultLogger = l
}

// Options selects the logger's level, encoding and destination.
type Options struct {
	Level  string // debug | info | warn | error
	Format string // console | json
	Path   string // file path; stderr when empty
}

// New builds a logger. Output never goes to stdout, which carries the MCP
// stdio transport.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil && opts.Level != "" {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if opts.Level == "" {
		level = zapcore.InfoLevel
	}

	out := "stderr"
	if opts.Path != "" {
		out = opts.Path
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      level == zapcore.DebugLevel,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{out},
		ErrorOutputPaths: []string{"stderr"},
	}
	if opts.Format == "json" {
		cfg.Encoding = "json"
		cfg.EncoderConfig = zap.NewProductionEncoderConfig()
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func Flush() {
	_ = defaultLogger.Sync()
}
