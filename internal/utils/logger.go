package utils

import (
	"io"
	"os"
	"time"

	"github.com/rongwang/lease-contract-server/internal/config"
	"github.com/rs/zerolog"
)

const serviceName = "contractd"

// NewLogger creates the application logger. JSON lines go to stdout unless
// pretty output is requested.
func NewLogger(cfg config.LogConfig) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return newLogger(out, cfg.Level)
}

func newLogger(out io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
