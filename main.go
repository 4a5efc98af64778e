package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/va6996/tokenagent/bootstrap"
	"github.com/va6996/tokenagent/config"
	"github.com/va6996/tokenagent/log"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// 0. Load Config
	cfg, err := config.Load()
	if err != nil {
		log.Init("info", "text")
		log.Fatalf(context.Background(), "Failed to load config: %v", err)
	}

	// Initialize logging
	log.Init(cfg.Log.Level, cfg.Log.Format)

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Init App Components using Bootstrap
	app, err := bootstrap.Setup(ctx, cfg)
	if err != nil {
		log.Fatalf(context.Background(), "Setup failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Errorf(context.Background(), "Cleanup failed: %v", err)
		}
	}()

	log.Infof(ctx, "Agent %s (%s) ready", cfg.Agent.Name, cfg.Agent.Address)

	// 2. Serve until interrupted
	if err := app.Server.Start(ctx); err != nil {
		log.Errorf(context.Background(), "Server failed: %v", err)
		return
	}
	log.Info(context.Background(), "Program terminated. Exiting...")
}
