// Package main starts the storefront proxy: it loads configuration, sets up
// logging and the catalog cache, wires the upstream client, services and
// handlers, and serves HTTP (or HTTPS when a certificate is configured).
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/storefront/internal/config"
	"github.com/atinyakov/storefront/internal/db"
	"github.com/atinyakov/storefront/internal/logger"
	"github.com/atinyakov/storefront/internal/repository"
	"github.com/atinyakov/storefront/internal/server/handler/http"
	"github.com/atinyakov/storefront/internal/service"
	"github.com/atinyakov/storefront/internal/upstream"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := newCache(ctx, options, zapLogger)

	// A single attempt per request; deadlines come from the inbound request.
	up := upstream.New(options.UpstreamURL, &nethttp.Client{}, zapLogger)

	// Initialize business-logic services.
	authService := service.NewAuthService(up)
	catalogService := service.NewCatalogService(up, cache, options.CacheTTL, zapLogger)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{AuthService: authService, Secure: options.Production, Log: zapLogger}
	catalogHandler := &http.CatalogHandler{Catalog: catalogService, AdminURL: options.UpstreamURL, Log: zapLogger}
	addressHandler := &http.AddressHandler{Upstream: up, Log: zapLogger}
	wishlistHandler := &http.WishlistHandler{Upstream: up, Log: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, catalogHandler, addressHandler, wishlistHandler, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown", zap.Error(err))
		}
	}()

	var err error
	if options.TLSCert != "" && options.TLSKey != "" {
		cert, loadErr := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
		if loadErr != nil {
			zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(loadErr))
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port), zap.String("upstream", options.UpstreamURL))
		err = server.ListenAndServeTLS("", "")
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port), zap.String("upstream", options.UpstreamURL))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

// newCache picks the catalog cache backend: Postgres when a DSN is set,
// Redis when a URL is set, memory otherwise. A zero TTL disables caching.
func newCache(ctx context.Context, options *config.Options, zapLogger *zap.Logger) service.CacheRepository {
	if options.CacheTTL <= 0 {
		zapLogger.Info("catalog cache disabled")
		return nil
	}

	switch {
	case options.DatabaseDSN != "":
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		db.StartExpiredCacheCleaner(ctx, postgresDB, time.Minute, zapLogger)
		zapLogger.Info("catalog cache: postgres")
		return repository.NewPostgresCacheRepository(postgresDB)

	case options.RedisURL != "":
		client, err := repository.ConnectRedis(options.RedisURL)
		if err != nil {
			zapLogger.Fatal("cannot connect to redis", zap.Error(err))
		}
		if err := client.Ping(ctx).Err(); err != nil {
			zapLogger.Fatal("cannot reach redis", zap.Error(err))
		}
		zapLogger.Info("catalog cache: redis")
		return repository.NewRedisCacheRepository(client)

	default:
		zapLogger.Info("catalog cache: memory")
		return repository.NewMemoryCacheRepository()
	}
}
