package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cx-tal-miterani/trip-planner/internal/activities"
	"github.com/cx-tal-miterani/trip-planner/internal/checkout"
	"github.com/cx-tal-miterani/trip-planner/internal/config"
	"github.com/cx-tal-miterani/trip-planner/internal/kvstore"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/internal/pending"
	"github.com/cx-tal-miterani/trip-planner/internal/pricing"
	"github.com/cx-tal-miterani/trip-planner/internal/session"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/internal/workflows"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
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
	log := logger.Named("worker")

	temporalHost := cfg.TemporalHost
	if temporalHost == "" {
		temporalHost = config.DefaultTemporalHost
	}

	// Connect to the kv store shared with the API server
	ctx := context.Background()
	log.Info("Opening kv store...", zap.String("backend", cfg.KV.Backend))
	kv, err := kvstore.Open(ctx, cfg.KV)
	if err != nil {
		log.Fatal("Failed to open kv store", zap.Error(err))
	}
	defer kv.Close()

	upstreamClient := upstream.New(cfg.Upstream)
	pricer := pricing.New(pricing.Range{Min: cfg.Pricing.FallbackMin, Max: cfg.Pricing.FallbackMax})
	co := checkout.New(upstreamClient, pending.NewStore(kv), kv, pricer)

	// Connect to Temporal
	log.Info("Connecting to Temporal...", zap.String("host", temporalHost))
	c, err := client.Dial(client.Options{
		HostPort: temporalHost,
		Logger:   logger.Temporal(),
	})
	if err != nil {
		log.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer c.Close()
	log.Info("Connected to Temporal")

	// Create worker
	w := worker.New(c, cfg.TaskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflowWithOptions(workflows.CheckoutWorkflow, workflow.RegisterOptions{Name: workflows.CheckoutWorkflowName})

	// Create and register activities
	acts := activities.NewActivities(co, session.NewStore(kv))
	acts.Register(w)

	// Start worker
	log.Info("Starting Temporal worker...", zap.String("task_queue", cfg.TaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("Worker failed", zap.Error(err))
	}
}
