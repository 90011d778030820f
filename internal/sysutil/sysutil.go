// Package sysutil holds process-level helpers shared by the commands:
// logger construction and small environment conveniences.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the global zerolog level. Unknown or empty values
// fall back to info; "warning" is accepted for warn.
func SetLogLevel(lvl string) {
	lvl = strings.ToLower(strings.TrimSpace(lvl))
	if lvl == "warning" {
		lvl = "warn"
	}
	level, err := zerolog.ParseLevel(lvl)
	if err != nil || lvl == "" || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// LogOptions configures NewLogger.
type LogOptions struct {
	Level   string
	Pretty  bool // human-readable console output for development
	Service string
	Version string
}

// NewLogger builds a logger writing to w (stderr when nil) with service and
// version fields on every event.
func NewLogger(w io.Writer, opt LogOptions) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if opt.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(w).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	if opt.Version != "" {
		ctx = ctx.Str("version", opt.Version)
	}
	return ctx.Logger()
}

// InitLogging applies opt to the global level and the global logger.
func InitLogging(opt LogOptions) {
	SetLogLevel(opt.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = NewLogger(os.Stderr, opt)
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
