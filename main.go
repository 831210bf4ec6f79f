package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"frame-cache/internal/cache"
	"frame-cache/internal/control"
	"frame-cache/internal/database"
	"frame-cache/internal/extract"
	"frame-cache/internal/geocode"
	"frame-cache/internal/logging"
	"frame-cache/internal/middleware"
	"frame-cache/internal/startup"
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Store-open failure is the one fatal error in this service.
	db, err := database.New(context.Background(), config.DBPath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}

	var resolver geocode.Resolver
	if config.GeocodeEnabled {
		resolver = geocode.NewOSM()
	} else {
		logging.Info("Reverse geocoding disabled")
		resolver = geocode.Disabled{}
	}

	imageCache := cache.New(db, extract.NewExif(), resolver, cache.Options{
		PictureDir:     config.PictureDir,
		UpdateInterval: config.UpdateInterval,
		PortraitPairs:  config.PortraitPairs,
	})
	imageCache.Start()

	handlers := control.New(imageCache)
	router := handlers.Router()

	if config.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHTTPDebug
	handler := middleware.Logger(loggingConfig)(
		middleware.Metrics(middleware.DefaultMetricsConfig())(router))

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv, imageCache)

	logging.Info("Control server listening on :%s (startup took %v)", config.Port, time.Since(startTime))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("Server error: %v", err)
	}
}

// handleShutdown stops the server and the cache loop on SIGINT/SIGTERM.
// The cache finishes its in-flight cycle, commits, and closes the store
// before the process exits.
func handleShutdown(srv *http.Server, imageCache *cache.Cache) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logging.Info("Received %v, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("HTTP server shutdown error: %v", err)
	}

	if err := imageCache.Stop(); err != nil {
		logging.Error("Cache shutdown error: %v", err)
	}
}
