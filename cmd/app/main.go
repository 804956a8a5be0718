package main

import (
	"flag"
	"log"
	"os"

	"SpendLens/internal/di"
	"SpendLens/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s clickhouse=%s redis=%v", cfg.Environment, cfg.ClickHouse.Host, cfg.Redis.Enabled)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		log.Printf("kafka: brokers=%v ingest=%s results=%s", cfg.Kafka.Brokers, cfg.Kafka.IngestTopic, cfg.Kafka.ResultsTopic)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
