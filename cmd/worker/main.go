package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-order-inventory/internal/app"
	"github.com/ariefcatur/go-order-inventory/internal/cancellation"
	"github.com/ariefcatur/go-order-inventory/internal/config"
	"github.com/ariefcatur/go-order-inventory/internal/domain"
	kafkax "github.com/ariefcatur/go-order-inventory/internal/kafka"
	"github.com/ariefcatur/go-order-inventory/internal/metrics"
	"github.com/ariefcatur/go-order-inventory/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required for the worker")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, metrics.New(prometheus.NewRegistry(), cfg.ServiceName+"-worker"))
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer deps.Close()
	logger := deps.Logger

	svc := &cancellation.Service{Orders: deps.Orders, Logger: logger}
	if deps.Redis != nil {
		svc.Dedup = redisx.NewDedup(deps.Redis, cfg.ServiceName+"-cancellation")
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, domain.TopicOrderCancelRequested, cfg.WorkerCount, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("cancellation consumer started",
			zap.String("group", cfg.WorkerGroup),
			zap.String("topic", domain.TopicOrderCancelRequested),
			zap.Int("workers", cfg.WorkerCount),
		)
		return cons.Start(gctx, svc.HandleCancelRequested)
	})
	if err := g.Wait(); err != nil {
		logger.Error("consumer exited", zap.Error(err))
	}
	logger.Info("worker stopped")
}
