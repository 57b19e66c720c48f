package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/almazgeobur/sales-analyzer/internal/config"
	"github.com/almazgeobur/sales-analyzer/internal/feed"
	"github.com/almazgeobur/sales-analyzer/internal/llm"
	"github.com/almazgeobur/sales-analyzer/internal/logger"
	"github.com/almazgeobur/sales-analyzer/internal/pipeline"
	"github.com/almazgeobur/sales-analyzer/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	feedURL := flag.String("url", "", "feed URL (overrides feed.url from the config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	url := cfg.Feed.URL
	if *feedURL != "" {
		url = *feedURL
	}
	if url == "" {
		log.Fatal("no feed URL: set feed.url in the config or pass -url")
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

	generator, err := llm.NewGenerator(ctx, cfg.LLM, cfg.Concurrency)
	if err != nil {
		logger.Log.Fatalf("failed to init report generator: %v", err)
	}

	fetcher := feed.NewClient(cfg.Feed.Timeout())

	p := pipeline.New(fetcher, generator, store,
		cfg.Retry.MaxRetries, cfg.Retry.Delay(), logger.Log)

	result := p.Run(ctx, url)
	fmt.Println(result.Message)
	if !result.OK {
		os.Exit(1)
	}
}
