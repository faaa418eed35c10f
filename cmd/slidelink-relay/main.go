package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nrdvana/slidelink/internal/config"
	"github.com/nrdvana/slidelink/internal/db"
	"github.com/nrdvana/slidelink/internal/handlers"
	"github.com/nrdvana/slidelink/internal/observability"
	"github.com/nrdvana/slidelink/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := observability.InitLogger("slidelink-relay")

	// Load configuration
	cfg, err := config.LoadRelay()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize database
	database, err := db.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close()

	// Initialize services
	grants := services.NewGrantService(database, logger)
	hub := services.NewHub(logger)

	// Setup routes
	router := handlers.SetupRoutes(
		handlers.NewWebSocketHandler(hub, grants, logger),
		handlers.NewStateHandler(hub),
		handlers.NewGrantHandler(grants, logger),
		cfg.DeckDir,
		logger,
	)

	// Configure server
	server := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Configure TLS if enabled
		if cfg.TLS.Enabled {
			server.TLSConfig = &tls.Config{
				MinVersion: config.TLSVersion(cfg.TLS.MinVersion),
			}
			logger.Info().
				Str("addr", server.Addr).
				Str("cert", cfg.TLS.CertFile).
				Str("key", cfg.TLS.KeyFile).
				Str("min_version", cfg.TLS.MinVersion).
				Msg("starting HTTPS server")
			return server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		}
		logger.Info().Str("addr", server.Addr).Msg("starting HTTP server")
		logger.Warn().Msg("HTTP mode is not recommended for production")
		return server.ListenAndServe()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info().Msg("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
