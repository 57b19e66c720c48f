package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/almazgeobur/sales-analyzer/internal/api"
	"github.com/almazgeobur/sales-analyzer/internal/cache"
	"github.com/almazgeobur/sales-analyzer/internal/config"
	"github.com/almazgeobur/sales-analyzer/internal/logger"
	"github.com/almazgeobur/sales-analyzer/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := storage.New(cfg.DB)
	if err != nil {
		logger.Log.Fatalf("failed to init storage: %v", err)
	}
	defer store.Close()

	var responseCache api.ResponseCache
	if cfg.Redis.Addr != "" {
		c, err := cache.New(ctx, cfg.Redis.Addr, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
		if err != nil {
			logger.Log.Fatalf("failed to connect to redis: %v", err)
		}
		defer c.Close()
		responseCache = c
	} else {
		logger.Log.Warn("redis.addr not set, response caching disabled")
	}

	srv := api.NewServer(store, responseCache, logger.Log)
	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		logger.Log.Infof("api server listening on %s", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("server shutdown: %v", err)
	}
}
