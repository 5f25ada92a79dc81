package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackiedee967/episoda-sub002/internal/api"
	"github.com/jackiedee967/episoda-sub002/internal/config"
	"github.com/jackiedee967/episoda-sub002/internal/directory"
	"github.com/jackiedee967/episoda-sub002/internal/mention"
	"github.com/jackiedee967/episoda-sub002/internal/notifications"
	"github.com/jackiedee967/episoda-sub002/internal/scheduler"
	"github.com/jackiedee967/episoda-sub002/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Episoda mention service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	postgresStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer postgresStore.Close()

	directoryService := directory.NewService(postgresStore, cfg.MentionSearchRPCURL, cfg.SuggestionLimit)
	resolver := mention.NewResolver(directoryService, postgresStore)
	digestService := notifications.NewService(cfg, postgresStore)

	schedulerService := scheduler.NewService(cfg, digestService, postgresStore)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	handlers := api.NewHandlers(postgresStore, postgresStore, directoryService, resolver)
	router := api.NewRouter(handlers)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
