package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jacentio/itemsvc/item"
	"github.com/jacentio/itemsvc/store"
)

func TestOpenEngine(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg = settings{}

	viper.Set("bolt-path", filepath.Join(t.TempDir(), "items.db"))
	viper.Set("purge-interval", time.Hour)
	t.Cleanup(viper.Reset)

	for _, engine := range []string{"memory", "bolt"} {
		t.Run(engine, func(t *testing.T) {
			s, closeStore, err := openEngine(context.Background(), engine)
			if err != nil {
				t.Fatalf("openEngine(%s): %v", engine, err)
			}
			defer closeStore()

			if _, err := s.Put(context.Background(), item.Item{ID: "1"}); err != nil {
				t.Fatalf("Put: %v", err)
			}
		})
	}
}

func TestOpenEngine_Unknown(t *testing.T) {
	if _, _, err := openEngine(context.Background(), "postgres"); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestPurgeExpired_StopsWithContext(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "purge.db"), store.DefaultConfig())
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer s.Close()

	_, _ = s.Put(context.Background(), item.Item{ID: "old", TTL: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		purgeExpired(ctx, s, 10*time.Millisecond)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge loop did not stop")
	}

	if n, err := s.Purge(context.Background()); err != nil || n != 0 {
		t.Errorf("expected the loop to have purged already, got n=%d err=%v", n, err)
	}
}
