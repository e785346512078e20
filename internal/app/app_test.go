package app

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-order-inventory/internal/config"
	"github.com/ariefcatur/go-order-inventory/internal/memstore"
)

func memoryConfig() config.Config {
	return config.Config{
		Store:          config.StoreMemory,
		ServiceName:    "test",
		Policy:         "best_effort",
		LogLevel:       "error",
		WorkerCount:    1,
		RequestTimeout: time.Second,
	}
}

func TestBuild_MemoryStoreWithoutInfra(t *testing.T) {
	d, err := Build(context.Background(), memoryConfig(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer d.Close()

	if _, ok := d.Store.(*memstore.Store); !ok {
		t.Errorf("expected memstore, got %T", d.Store)
	}
	if d.Redis != nil || d.Orders == nil {
		t.Errorf("unexpected deps: redis=%v orders=%v", d.Redis, d.Orders)
	}
}

func TestBuild_RejectsUnknownPolicy(t *testing.T) {
	cfg := memoryConfig()
	cfg.Policy = "sometimes"
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for unknown policy")
	}
}
