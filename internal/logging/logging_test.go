package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/luizfeldmann/midisched/internal/midierr"
)

func TestInitValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			if err := Init(level); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if Logger() == nil {
				t.Fatal("Logger() returned nil")
			}
		})
	}
}

func TestInitInvalidLevel(t *testing.T) {
	err := Init("verbose")
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !errors.Is(err, midierr.ErrInvariantViolation) {
		t.Errorf("expected error to wrap ErrInvariantViolation, got %v", err)
	}
}

func TestLoggerBeforeInit(t *testing.T) {
	mu.Lock()
	initialized = false
	logger = nil
	mu.Unlock()

	if Logger() != slog.Default() {
		t.Error("Logger() should return slog.Default() before Init")
	}
}

func TestInitIsIdempotentAboutHandlerIdentity(t *testing.T) {
	mu.Lock()
	initialized = false
	logger = nil
	mu.Unlock()

	if err := Init("info"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	first := Logger()

	if err := Init("debug"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	second := Logger()

	if first != second {
		t.Error("re-Init should adjust the level in place, not rebuild the logger")
	}
	if !second.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("level change via re-Init should take effect")
	}
}
