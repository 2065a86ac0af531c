package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/knowledge-engine/simpletex/internal/api"
	"github.com/knowledge-engine/simpletex/internal/config"
	"github.com/knowledge-engine/simpletex/internal/engine"
	"github.com/knowledge-engine/simpletex/internal/logging"
	"github.com/knowledge-engine/simpletex/internal/metrics"
)

func main() {
	// 1. Config
	cfg := config.Load()

	// 2. Logging
	logger := logging.New(cfg.Logging, os.Stderr)
	entry := logger.WithField("service", "simpletex-api")
	entry.Info("Starting SimpleTex keyword service")

	// 3. Metrics
	m := metrics.MustNewMetrics(prometheus.DefaultRegisterer)

	// 4. Engine
	eng, err := engine.NewEngine(cfg, entry.WithField("component", "engine"), m)
	if err != nil {
		entry.Fatalf("Failed to initialize engine: %v", err)
	}

	// 5. API Server
	server := api.NewServer(eng, entry.WithField("component", "api"), prometheus.DefaultGatherer)
	if err := server.Start(cfg.Server.Addr); err != nil {
		entry.Fatal(err)
	}
}
