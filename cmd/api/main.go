package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-order-inventory/internal/app"
	"github.com/ariefcatur/go-order-inventory/internal/catalog"
	"github.com/ariefcatur/go-order-inventory/internal/config"
	"github.com/ariefcatur/go-order-inventory/internal/httpx"
	"github.com/ariefcatur/go-order-inventory/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, cfg.ServiceName)

	deps, err := app.Build(ctx, cfg, m)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer deps.Close()
	logger := deps.Logger

	router := httpx.NewRouter(httpx.RouterOptions{
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
		Timeout:  cfg.RequestTimeout,
	})
	httpx.NewOrdersHandler(deps.Orders, logger).Register(router)
	httpx.NewProductsHandler(&catalog.Service{UoW: deps.Store}, logger).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server exited", zap.Error(err))
	}
}
