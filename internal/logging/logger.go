// Package logging configures the process-wide zerolog logger and carries
// component loggers through contexts.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level  string // trace|debug|info|warn|error|disabled
	Format string // auto|console|json
	Output io.Writer
}

var defaultLogger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	defaultLogger.Store(&l)
}

// New builds a logger from cfg. A nil Output means stderr.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := out.(*os.File); ok {
			if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
				format = "console"
			}
		}
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: os.Getenv("NO_COLOR") != ""}
	}

	return zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// Configure replaces the default logger.
func Configure(cfg Config) zerolog.Logger {
	l := New(cfg)
	SetDefault(l)
	return l
}

func SetDefault(l zerolog.Logger) { defaultLogger.Store(&l) }

func Default() *zerolog.Logger { return defaultLogger.Load() }

// Component returns a child of the default logger tagged with component.
func Component(name string) zerolog.Logger {
	return Default().With().Str("component", name).Logger()
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
