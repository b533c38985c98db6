// Package logging provides the process-wide structured logger shared by
// every stage.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures the options for Configure.
type Config struct {
	// Level is one of zerolog's level names ("trace", "debug", "info",
	// "warn", "error", "fatal"). Empty defaults to "info".
	Level string
	// Output defaults to os.Stdout.
	Output io.Writer
}

var (
	mu          sync.RWMutex
	base        zerolog.Logger
	initialized bool
)

// Configure initializes the global logger. Safe to call again later (e.g.
// on a hot-reloaded log_level) — every WithComponent logger derived before
// a reconfigure keeps logging through the shared zerolog.Logger value, but
// SetLevel (not Configure) is the intended reload path since it only
// touches the level, not the writer.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}

	base = zerolog.New(writer).With().Timestamp().Str("service", "videopipe").Logger()
	initialized = true
}

func ensureInitialized() {
	mu.RLock()
	if initialized {
		mu.RUnlock()
		return
	}
	mu.RUnlock()
	Configure(Config{})
}

// SetLevel updates the global log level without touching the writer or any
// other field. This is the hot-reload entry point for the config watcher.
func SetLevel(level string) error {
	ensureInitialized()
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

func logger() zerolog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// L returns the base logger.
func L() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger tagged with component, used by each
// stage to namespace its own log lines.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}
