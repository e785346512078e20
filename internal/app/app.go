// Package app wires the adapters selected by the configuration into an
// orders.Manager shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-order-inventory/internal/config"
	"github.com/ariefcatur/go-order-inventory/internal/domain"
	kafkax "github.com/ariefcatur/go-order-inventory/internal/kafka"
	"github.com/ariefcatur/go-order-inventory/internal/memstore"
	"github.com/ariefcatur/go-order-inventory/internal/metrics"
	"github.com/ariefcatur/go-order-inventory/internal/observability"
	"github.com/ariefcatur/go-order-inventory/internal/orders"
	"github.com/ariefcatur/go-order-inventory/internal/port"
	"github.com/ariefcatur/go-order-inventory/internal/postgres"
	"github.com/ariefcatur/go-order-inventory/internal/redisx"
)

type Deps struct {
	Logger *zap.Logger
	Store  port.UnitOfWork
	Redis  *redis.Client // nil when REDIS_ADDR is empty
	Orders *orders.Manager

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (d *Deps) Close() error {
	var errs error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = errors.Join(errs, d.closers[i]())
	}
	d.closers = nil
	return errs
}

func Build(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*Deps, error) {
	policy, err := orders.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("service", cfg.ServiceName))
	d := &Deps{Logger: logger}
	d.closers = append(d.closers, func() error { _ = logger.Sync(); return nil })

	fail := func(err error) (*Deps, error) {
		_ = d.Close()
		return nil, err
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTELEndpoint, cfg.ServiceName)
	if err != nil {
		return fail(err)
	}
	d.closers = append(d.closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(sctx)
	})

	switch cfg.Store {
	case config.StoreMemory:
		d.Store = memstore.New()
	default:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return fail(fmt.Errorf("db connect: %w", err))
		}
		d.closers = append(d.closers, func() error { pool.Close(); return nil })
		if err := postgres.Migrate(ctx, pool); err != nil {
			return fail(err)
		}
		d.Store = postgres.New(pool)
	}

	opts := orders.Options{
		Policy:      policy,
		Metrics:     m,
		Logger:      logger,
		ServiceName: cfg.ServiceName,
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisx.New(ctx, cfg.RedisAddr)
		if err != nil {
			return fail(err)
		}
		d.Redis = rdb
		d.closers = append(d.closers, rdb.Close)
		opts.Cache = redisx.NewViewCache(rdb, redisx.TTLOrderView)
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub := kafkax.NewPublisher(cfg.KafkaBrokers, []string{
			domain.TopicOrderPlaced,
			domain.TopicOrderUpdated,
			domain.TopicOrderCancelled,
		}, 1024, logger)
		d.closers = append(d.closers, func() error { pub.Close(); return nil })
		opts.Events = pub
	}

	d.Orders = orders.NewManager(d.Store, opts)
	logger.Info("dependencies ready",
		zap.String("store", cfg.Store),
		zap.String("policy", string(policy)),
		zap.Bool("cache", opts.Cache != nil),
		zap.Bool("events", opts.Events != nil),
	)
	return d, nil
}
