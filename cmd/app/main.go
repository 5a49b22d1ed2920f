package main

import (
	"flag"
	"log"
	"os"

	"SmartEnergy/internal/di"
	"SmartEnergy/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s users=%s alerts=%s cache=%s", cfg.Environment, cfg.Users.Backend, cfg.Alerts.Backend, cfg.Cache.Type)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.ClickHouse.Enabled {
		log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	}
	if cfg.Kafka.Enabled {
		log.Printf("kafka: brokers=%v readings=%s alerts=%s", cfg.Kafka.Brokers, cfg.Kafka.ReadingsTopic, cfg.Kafka.AlertsTopic)
	}

	// Run application (blocks until signal)
	err = app.Run()
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
