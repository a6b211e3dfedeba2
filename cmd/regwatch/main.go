// Package main wires together the monitor service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/regwatchio/regwatch/internal/analysis"
	"github.com/regwatchio/regwatch/internal/api"
	"github.com/regwatchio/regwatch/internal/clock/system"
	"github.com/regwatchio/regwatch/internal/config"
	"github.com/regwatchio/regwatch/internal/fetch"
	"github.com/regwatchio/regwatch/internal/hash/sha256"
	"github.com/regwatchio/regwatch/internal/id/uuid"
	"github.com/regwatchio/regwatch/internal/logging"
	"github.com/regwatchio/regwatch/internal/monitor"
	publisherMemory "github.com/regwatchio/regwatch/internal/publisher/memory"
	publisherPubsub "github.com/regwatchio/regwatch/internal/publisher/pubsub"
	"github.com/regwatchio/regwatch/internal/runner"
	storageGCS "github.com/regwatchio/regwatch/internal/storage/gcs"
	storageMemory "github.com/regwatchio/regwatch/internal/storage/memory"
	"github.com/regwatchio/regwatch/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	sourceStore, err := postgres.NewSourceStore(pool)
	if err != nil {
		return fmt.Errorf("build source store: %w", err)
	}
	snapshotStore, err := postgres.NewSnapshotStore(pool)
	if err != nil {
		return fmt.Errorf("build snapshot store: %w", err)
	}
	eventStore, err := postgres.NewEventStore(pool)
	if err != nil {
		return fmt.Errorf("build event store: %w", err)
	}

	blobStore, err := buildBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	publisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}

	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	analyzer := analysis.NewInvoker(
		analysis.NewClient(analysis.ClientConfig{
			Endpoint: cfg.Analysis.Endpoint,
			Model:    cfg.Analysis.Model,
			APIKey:   cfg.Analysis.APIKey,
			Timeout:  cfg.AnalysisTimeout(),
		}),
		analysis.InvokerConfig{
			MaxCurrentChars:  cfg.Analysis.MaxCurrentChars,
			MaxPreviousChars: cfg.Analysis.MaxPreviousChars,
		},
		logger.Named("analysis"),
	)

	clk := system.New()
	pipeline := runner.New(
		sourceStore,
		snapshotStore,
		eventStore,
		fetcher,
		analyzer,
		sha256.New(),
		blobStore,
		publisher,
		clk,
		uuid.New(),
		runner.Config{
			Concurrency: cfg.Runner.Concurrency,
			BlobPrefix:  cfg.Storage.Prefix,
			ContentType: cfg.Storage.ContentType,
			Topic:       cfg.Publisher.TopicName,
		},
		logger.Named("runner"),
	)

	server := api.NewServer(pipeline, eventStore, clk, cfg, logger.Named("api"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func buildBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (monitor.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		store, err := storageGCS.New(client, storageGCS.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("build gcs blob store: %w", err)
		}
		logger.Info("content archive enabled", zap.String("bucket", cfg.Storage.GCSBucket))
		return store, nil
	case "memory":
		return storageMemory.NewBlobStore(), nil
	default:
		logger.Info("content archive disabled")
		return nil, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (monitor.Publisher, error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.Publisher.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		logger.Info("change event notifications enabled", zap.String("topic", cfg.Publisher.TopicName))
		return publisherPubsub.New(client.Topic(cfg.Publisher.TopicName)), nil
	case "memory":
		return publisherMemory.New(), nil
	default:
		logger.Info("change event notifications disabled")
		return nil, nil
	}
}
