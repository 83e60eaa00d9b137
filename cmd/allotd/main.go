package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"hostel-allotment-backend/config"
	"hostel-allotment-backend/internal/allocation"
	"hostel-allotment-backend/internal/allotment"
	"hostel-allotment-backend/internal/api"
	"hostel-allotment-backend/internal/db"
	"hostel-allotment-backend/internal/layout"
	"hostel-allotment-backend/internal/logger"
	"hostel-allotment-backend/internal/notification"
	"hostel-allotment-backend/internal/redis"
	"hostel-allotment-backend/internal/roster"
	"hostel-allotment-backend/internal/store"
	"hostel-allotment-backend/internal/tracing"
)

const lockKey = "hostel-allotment:run-lock"

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	zl, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zl.Info("Configuration loaded", zap.String("path", configPath))

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Setup("hostel-allotment", os.Stdout)
		if err != nil {
			zl.Fatal("Failed to set up tracing", zap.Error(err))
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, zl)
	if err != nil {
		zl.Fatal("Failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)

	hostelLayout, err := layout.Load(cfg.Allotment.LayoutPath)
	if err != nil {
		zl.Fatal("Failed to load hostel layout", zap.String("path", cfg.Allotment.LayoutPath), zap.Error(err))
	}

	policy, err := allocation.ParsePolicy(cfg.Allotment.FallbackPolicy)
	if err != nil {
		zl.Fatal("Invalid fallback policy", zap.Error(err))
	}

	var lock allotment.RunLock = allotment.NewLocalLock()
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(&cfg.Redis, zl)
		if err != nil {
			zl.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		lock = allotment.NewRedisLock(client, lockKey, cfg.Redis.LockTTL)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		notifier       allotment.Notifier
		webpushOptions *webpush.Options
	)
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, zl)
		pool.Start(ctx)
		notifier = pool
	} else {
		zl.Warn("VAPID keys not configured, allotment notifications are disabled")
	}

	svc := allotment.NewService(appStore, lock, notifier, allotment.Options{
		Workers:        cfg.Allotment.Workers,
		Policy:         policy,
		PersistTimeout: cfg.Allotment.PersistTimeout,
		RunTimeout:     cfg.Allotment.RunTimeout,
	}, zl)

	bootCtx, bootCancel := context.WithTimeout(ctx, time.Minute)
	err = svc.Bootstrap(bootCtx, hostelLayout)
	bootCancel()
	if err != nil {
		zl.Fatal("Failed to bootstrap allotment state", zap.Error(err))
	}

	rosterSvc := roster.NewService(&cfg.Roster, appStore, zl)
	go rosterSvc.Run(ctx)

	handler := api.NewHandler(svc, appStore, webpushOptions, zl)
	router := api.NewRouter(&cfg.Server, handler, zl)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zl.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	zl.Info("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP server Shutdown", zap.Error(err))
	}

	zl.Info("Server gracefully stopped")
}
