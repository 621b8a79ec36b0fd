package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cx-tal-miterani/trip-planner/internal/checkout"
	"github.com/cx-tal-miterani/trip-planner/internal/config"
	"github.com/cx-tal-miterani/trip-planner/internal/handlers"
	"github.com/cx-tal-miterani/trip-planner/internal/kvstore"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/internal/pending"
	"github.com/cx-tal-miterani/trip-planner/internal/pricing"
	"github.com/cx-tal-miterani/trip-planner/internal/router"
	"github.com/cx-tal-miterani/trip-planner/internal/search"
	"github.com/cx-tal-miterani/trip-planner/internal/service"
	"github.com/cx-tal-miterani/trip-planner/internal/session"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/internal/websocket"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Named("server")

	ctx := context.Background()

	kv, err := kvstore.Open(ctx, cfg.KV)
	if err != nil {
		log.Fatal("Failed to open kv store", zap.String("backend", cfg.KV.Backend), zap.Error(err))
	}
	defer kv.Close()

	// Optional Temporal client; without it checkout runs in-process
	var temporalClient client.Client
	if cfg.TemporalHost != "" {
		if strings.EqualFold(cfg.KV.Backend, "memory") {
			log.Warn("Temporal checkout needs a kv store shared with the worker; memory is per process")
		}
		temporalClient, err = client.Dial(client.Options{
			HostPort: cfg.TemporalHost,
			Logger:   logger.Temporal(),
		})
		if err != nil {
			log.Fatal("Failed to create Temporal client", zap.Error(err))
		}
		defer temporalClient.Close()
	}

	// Initialize services
	upstreamClient := upstream.New(cfg.Upstream)
	pendingStore := pending.NewStore(kv)
	pricer := pricing.New(pricing.Range{Min: cfg.Pricing.FallbackMin, Max: cfg.Pricing.FallbackMax})

	hub := websocket.NewHub(cfg.CORSOrigins...)
	go hub.Run()
	defer hub.Stop()

	plannerService := service.NewPlannerService(service.Deps{
		KV:        kv,
		Client:    upstreamClient,
		Search:    search.New(upstreamClient, cfg.Pricing.AirportCodeLen),
		Checkout:  checkout.New(upstreamClient, pendingStore, kv, pricer),
		Pending:   pendingStore,
		Sessions:  session.NewStore(kv),
		Hub:       hub,
		Temporal:  temporalClient,
		TaskQueue: cfg.TaskQueue,
		ChatPoll:  cfg.Chat.PollInterval,
	})

	// Initialize handlers
	h := handlers.NewHandler(plannerService, hub)

	// Create router
	r := router.NewRouter(h, cfg.CORSOrigins)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("API Server starting",
			zap.String("port", cfg.Port),
			zap.String("upstream", cfg.Upstream.BaseURL),
			zap.String("kv_backend", cfg.KV.Backend),
			zap.Bool("temporal", temporalClient != nil))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// stop the chat followers first so they do not push into a closing hub
	plannerService.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
