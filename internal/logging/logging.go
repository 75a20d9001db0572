// Package logging configures the process-wide zerolog logger and hands out
// per-component child loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

type Options struct {
	Level  string
	Format Format
	Out    io.Writer
}

var (
	mu   sync.RWMutex
	base = zerolog.Nop()
)

// Init replaces the base logger. Unknown levels fall back to info.
func Init(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var w io.Writer = out
	if opts.Format != FormatJSON {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()

	mu.Lock()
	base = logger
	mu.Unlock()
	return logger
}

func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}
