package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	config "deploypilot/app/configs"
	"deploypilot/app/core/ideas"
	"deploypilot/app/core/interaction/http"
	"deploypilot/app/pkg/logger"
)

func main() {
	if err := logger.Init("output/logs"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found")
	}
	logger.Info("Ideas API starting...")

	cfgManager, err := config.NewManager(config.DefaultPath())
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()
	config.ApplyEnvOverrides(&cfg)

	store := ideas.NewStore()
	server := http.NewServer(cfg.API.Port, store)
	server.SetShutdownTimeout(time.Duration(cfg.API.ShutdownTimeoutSec) * time.Second)
	server.SetStatusProvider(func(ctx context.Context) map[string]interface{} {
		return map[string]interface{}{
			"namespace":  cfg.Kube.Namespace,
			"deployment": cfg.Kube.Deployment,
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	logger.Info("Ideas API listening on port %d", cfg.API.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info("Received signal: %v. Shutting down...", sig)
		cancel()
		if err := <-errCh; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("Server crashed: %v", err)
			os.Exit(1)
		}
	}
}
