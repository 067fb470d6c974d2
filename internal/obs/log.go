package obs

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for the shared logger.
type Config struct {
	Level   string    // "debug", "info", ...; falls back to REALM_LOG_LEVEL
	Output  io.Writer // defaults to os.Stdout
	Service string
}

var (
	loggerMu sync.RWMutex
	base     = newLogger(Config{})
)

func newLogger(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	raw := cfg.Level
	if raw == "" {
		raw = os.Getenv("REALM_LOG_LEVEL")
	}
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	service := cfg.Service
	if service == "" {
		service = "realm"
	}
	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Configure replaces the shared logger. Safe to call more than once (tests redirect Output).
func Configure(cfg Config) {
	l := newLogger(cfg)
	loggerMu.Lock()
	base = l
	loggerMu.Unlock()
}

// Base returns the shared structured logger used across the service.
func Base() zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
