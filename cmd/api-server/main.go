package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"imis/internal/config"
	"imis/internal/logger"
	"imis/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Setup structured logging
	l := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.Info("starting_api_server", "env", cfg.GoEnv, "http_port", cfg.HTTPPort)
	if err := server.Run(ctx, cfg, l); err != nil {
		l.Error("server_error", "error", err.Error())
		os.Exit(1)
	}
}
