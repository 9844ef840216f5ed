package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mabletask/admin/config"
	"mabletask/admin/database"
	"mabletask/admin/handlers"
	"mabletask/admin/logger"
	"mabletask/admin/middleware"
	"mabletask/admin/routes"
	"mabletask/admin/store"
	"mabletask/admin/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Environment())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.GinMode == gin.ReleaseMode || cfg.Environment().IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// PostgreSQL holds users and products.
	dbClient, err := database.NewPostgresDB(startupCtx, cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("Failed to initialize PostgreSQL database", zap.Error(err))
	}
	defer dbClient.Close()

	// ClickHouse holds tracked events.
	chClient, err := database.NewClickHouseDB(startupCtx, cfg.ClickHouse, zl)
	if err != nil {
		zl.Fatal("Failed to initialize ClickHouse database", zap.Error(err))
	}
	defer chClient.Close()

	if err := database.MigratePostgres(startupCtx, dbClient.DB); err != nil {
		zl.Fatal("PostgreSQL migration failed", zap.Error(err))
	}
	if err := database.MigrateClickHouse(startupCtx, chClient.DB); err != nil {
		zl.Fatal("ClickHouse migration failed", zap.Error(err))
	}

	// Redis is optional; without it product listings are read straight from Postgres.
	var productCache *store.ProductCache
	rdb, err := database.NewRedisClient(startupCtx, cfg.Redis, zl)
	if err != nil {
		zl.Warn("Redis unavailable, product cache disabled", zap.Error(err))
	} else if rdb != nil {
		defer rdb.Close()
		productCache = store.NewProductCache(rdb, cfg.ProductCacheTTL)
	}

	issuer, err := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		zl.Fatal("Invalid JWT configuration", zap.Error(err))
	}

	userStore := store.NewUserStore(dbClient.DB, zl)
	productStore := store.NewProductStore(dbClient.DB, productCache, zl)
	eventStore := store.NewEventStore(chClient.DB, cfg.EventsMaxRows, zl)

	limiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitPerMinute), cfg.RateLimitBurst, 10*time.Minute)
	stopLimiter := make(chan struct{})
	go limiter.Run(stopLimiter)
	defer close(stopLimiter)

	r := routes.NewRouter(routes.Deps{
		Auth:        handlers.NewAuthHandlers(userStore, issuer, cfg.Environment().IsProduction(), zl),
		Events:      handlers.NewEventHandlers(eventStore, zl),
		Products:    handlers.NewProductHandlers(productStore, cfg.ProductIDPrefix, zl),
		Issuer:      issuer,
		APIKey:      cfg.APIKey,
		Origin:      cfg.FrontendOrigin,
		AuthLimiter: limiter,
		Logger:      zl,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("API server starting", zap.String("addr", srv.Addr), zap.String("env", string(cfg.Environment())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("API server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}

	zl.Info("Server exiting")
}
