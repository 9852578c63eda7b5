package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jacentio/itemsvc/api"
	"github.com/jacentio/itemsvc/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the item API over HTTP",
	Long:  `Serve the item API over plain HTTP for local development. The engine flag selects where items are stored: dynamodb (DYNAMODB_TABLE, optionally DYNAMODB_ENDPOINT for DynamoDB Local), bolt (a local file) or memory.`,
	RunE:  runServe,
}

func init() {
	key := "addr"
	serveCmd.Flags().String(key, ":8080", WrapString("The address on which the API will listen"))

	key = "engine"
	serveCmd.Flags().String(key, "memory", WrapString("Storage engine (dynamodb, bolt, memory)"))

	key = "bolt-path"
	serveCmd.Flags().String(key, "items.db", WrapString("Path of the bolt database file (bolt engine only)"))

	key = "purge-interval"
	serveCmd.Flags().Duration(key, time.Minute, WrapString("How often expired items are removed from the bolt file (bolt engine only, 0 disables)"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := viper.GetString("engine")
	s, closeStore, err := openEngine(ctx, engine)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := &http.Server{
		Addr:              viper.GetString("addr"),
		Handler:           api.NewHTTPHandler(api.NewService(s, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "engine", engine)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openEngine opens the named storage engine. The returned func releases it.
func openEngine(ctx context.Context, engine string) (store.Store, func(), error) {
	switch engine {
	case "dynamodb":
		s, err := newDynamoStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "bolt":
		s, err := store.OpenBolt(viper.GetString("bolt-path"), cfg.storeConfig())
		if err != nil {
			return nil, nil, err
		}
		purgeCtx, cancelPurge := context.WithCancel(ctx)
		purged := make(chan struct{})
		go func() {
			defer close(purged)
			purgeExpired(purgeCtx, s, viper.GetDuration("purge-interval"))
		}()
		return s, func() {
			cancelPurge()
			<-purged

			if err := s.Close(); err != nil {
				logger.Warn("failed to close bolt store", "error", err)
			}
		}, nil
	case "memory":
		return store.NewMemory(cfg.storeConfig()), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("invalid engine %s (expected one of: dynamodb, bolt, memory)", engine)
	}
}

// purgeExpired removes expired items from s every interval until ctx ends.
func purgeExpired(ctx context.Context, s *store.BoltStore, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx)
			if err != nil {
				logger.Warn("failed to purge expired items", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged expired items", "count", n)
			}
		}
	}
}
