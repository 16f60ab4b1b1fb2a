package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestInitAndGet(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Re-init must be safe; main and tests both call it.
	if err := Init(); err != nil {
		t.Fatalf("failed to re-initialize logger: %v", err)
	}
}

func TestFieldEmission(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	log := Get()

	// Every field constructor the service uses; panics here would take
	// down the hot path of the hub and router.
	log.Info(ctx, "connection opened",
		String("conn_id", "c1"),
		Int("capacity", 50),
		Float64("ratio", 0.34),
		Bool("degraded", false),
		Any("subject", map[string]string{"kind": "crowd"}),
	)
	log.Warn(ctx, "store insert failed", Error(errors.New("store unavailable")))
}

func TestNamedGrouping(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	hub := Named("hub")
	if hub == nil {
		t.Fatal("named logger is nil")
	}
	hub.Info(context.Background(), "registered", String("conn_id", "c1"))

	// Named on a child must nest, not replace.
	if hub.Named("writer") == nil {
		t.Fatal("nested named logger is nil")
	}
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, c := range cases {
		if err := SetLevelString(c.in); err != nil {
			t.Fatalf("SetLevelString(%q): %v", c.in, err)
		}
		if got := levelVar.Level(); got != c.want {
			t.Errorf("SetLevelString(%q): level = %v, want %v", c.in, got, c.want)
		}
	}

	if err := SetLevelString("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
