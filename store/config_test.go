package store_test

import (
	"testing"

	"github.com/jacentio/itemsvc/store"
)

func TestDefaultConfig(t *testing.T) {
	cfg := store.DefaultConfig()

	if cfg.Table != "items" {
		t.Errorf("expected Table 'items', got %q", cfg.Table)
	}
	if cfg.DefaultPageSize != 50 {
		t.Errorf("expected DefaultPageSize 50, got %d", cfg.DefaultPageSize)
	}
	if cfg.MaxPageSize != 1000 {
		t.Errorf("expected MaxPageSize 1000, got %d", cfg.MaxPageSize)
	}
}

func TestConfig_PageLimit(t *testing.T) {
	cfg := store.Config{DefaultPageSize: 20, MaxPageSize: 100}

	tests := []struct {
		name      string
		requested int
		expected  int
	}{
		{"zero uses default", 0, 20},
		{"negative uses default", -3, 20},
		{"within bounds", 42, 42},
		{"at max", 100, 100},
		{"above max is clamped", 5000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.PageLimit(tt.requested); got != tt.expected {
				t.Errorf("PageLimit(%d) = %d, want %d", tt.requested, got, tt.expected)
			}
		})
	}
}

func TestConfig_PageLimitNormalizesZeroConfig(t *testing.T) {
	var cfg store.Config
	if got := cfg.PageLimit(0); got != 50 {
		t.Errorf("expected default 50 from zero config, got %d", got)
	}
	if got := cfg.PageLimit(2000); got != 1000 {
		t.Errorf("expected clamp to 1000 from zero config, got %d", got)
	}
}

func TestConfig_DefaultAboveMax(t *testing.T) {
	cfg := store.Config{DefaultPageSize: 500, MaxPageSize: 100}
	if got := cfg.PageLimit(0); got != 100 {
		t.Errorf("expected default clamped to max 100, got %d", got)
	}
}
