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

	"phankid/internal/config"
	"phankid/internal/database"
	"phankid/internal/handler"
	"phankid/internal/model"
	"phankid/internal/repository"
	"phankid/internal/router"
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
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting phankid API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	location, err := cfg.Shop.Location()
	if err != nil {
		return fmt.Errorf("failed to load shop time zone: %w", err)
	}

	// Initialize repositories
	transactor := repository.NewTransactor(pool, logger)
	catalogRepo := repository.NewCatalogRepository(pool, logger)
	inventoryRepo := repository.NewInventoryRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)

	// Initialize services
	catalogService := service.NewCatalogService(catalogRepo, logger)
	inventoryService := service.NewInventoryService(transactor, inventoryRepo, logger)
	cartService := service.NewCartService(cartRepo, catalogRepo, cfg.Shop.GuestCartTTL(), logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, catalogRepo, inventoryRepo, paymentRepo, service.OrderSettings{
		Pricing: model.PricingPolicy{
			FreeShippingThreshold: cfg.Shop.FreeShippingThreshold,
			StandardShippingFee:   cfg.Shop.StandardShippingFee,
		},
		Location: location,
	}, logger)
	paymentService := service.NewPaymentService(orderRepo, paymentRepo, inventoryRepo, logger)

	mux := router.New(router.Handlers{
		Product:   handler.NewProductHandler(catalogService, logger),
		Cart:      handler.NewCartHandler(cartService, logger),
		Order:     handler.NewOrderHandler(orderService, logger),
		Payment:   handler.NewPaymentHandler(paymentService, orderService, logger),
		Inventory: handler.NewInventoryHandler(inventoryService, logger),
	}, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
