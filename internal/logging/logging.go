// Package logging provides the package-level slog.Logger used across the
// codec, time map, and player for non-fatal decode/playback warnings.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/luizfeldmann/midisched/internal/midierr"
)

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var (
	mu          sync.Mutex
	level       = new(slog.LevelVar) // zero value is LevelInfo
	logger      *slog.Logger
	initialized bool
)

// Init configures the package-level logger for the given level ("debug",
// "info", "warn", or "error"). It may be called more than once — e.g. if a
// --log-level flag is reparsed mid-process — without rebuilding the
// handler, since the level lives in a slog.LevelVar the handler consults on
// every record rather than a value captured once at construction time.
func Init(levelName string) error {
	slogLevel, ok := levelNames[levelName]
	if !ok {
		return fmt.Errorf("logging: invalid log level %q: %w", levelName, midierr.ErrInvariantViolation)
	}

	mu.Lock()
	defer mu.Unlock()

	level.Set(slogLevel)
	if !initialized {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		logger = slog.New(handler)
		initialized = true
	}

	return nil
}

// Logger returns the package-level logger, defaulting to slog.Default()
// before Init has been called.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if !initialized {
		return slog.Default()
	}
	return logger
}
