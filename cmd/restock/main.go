// Command restock applies supplier delivery manifests to inventory.
//
//	restock [-env file] deliveries/2026-10-16-a.gz deliveries/2026-10-16-b.gz
//
// Manifests are gzipped text files with one "variant_id,quantity" per line.
// With S3 enabled each path is first looked up under S3_PREFIX in S3_BUCKET.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"phankid/internal/config"
	"phankid/internal/database"
	"phankid/internal/repository"
	"phankid/internal/restock"
	"phankid/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env", ".env", "optional env file to load")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		return fmt.Errorf("usage: restock [-env file] manifest.gz [manifest.gz ...]")
	}

	_ = godotenv.Load(*envFile)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	inventory := service.NewInventoryService(
		repository.NewTransactor(pool, logger),
		repository.NewInventoryRepository(pool, logger),
		logger,
	)

	fileLoader := restock.NewFileLoader(logger)
	var s3Loader restock.Loader
	if cfg.S3.Enabled {
		s3Loader, err = restock.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 loader, using local file system only")
			s3Loader = nil
		}
	}
	loader := restock.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	report, err := restock.NewImporter(loader, inventory, logger).Import(ctx, paths)
	if err != nil {
		return fmt.Errorf("restock import failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d variants failed to restock", len(report.Failed), len(report.Failed)+len(report.Applied))
	}
	return nil
}
