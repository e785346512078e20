package reservation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-order-inventory/internal/catalog"
	"github.com/ariefcatur/go-order-inventory/internal/domain"
	"github.com/ariefcatur/go-order-inventory/internal/memstore"
	"github.com/ariefcatur/go-order-inventory/internal/metrics"
)

func setup(t *testing.T, stock int) (*Service, *catalog.Service) {
	t.Helper()
	store := memstore.New()
	cat := &catalog.Service{UoW: store}
	_, err := cat.Save(context.Background(), domain.Product{
		ID: "p1", Name: "Book", UnitPrice: decimal.RequireFromString("10.0"), Stock: stock,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewService(store, nil), cat
}

func TestReserve_Success(t *testing.T) {
	svc, cat := setup(t, 5)
	ctx := context.Background()

	p, err := svc.Reserve(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.UnitPrice.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected unit price 10, got %s", p.UnitPrice)
	}
	got, _ := cat.Get(ctx, "p1")
	if got.Stock != 3 {
		t.Errorf("expected stock 3, got %d", got.Stock)
	}
}

func TestReserve_InsufficientStock(t *testing.T) {
	svc, cat := setup(t, 1)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "p1", 2)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var ise *domain.InsufficientStockError
	if !errors.As(err, &ise) || ise.Requested != 2 || ise.Available != 1 {
		t.Errorf("unexpected details: %+v", ise)
	}
	got, _ := cat.Get(ctx, "p1")
	if got.Stock != 1 {
		t.Errorf("expected stock unchanged at 1, got %d", got.Stock)
	}
}

func TestReserve_NotFound(t *testing.T) {
	svc, _ := setup(t, 1)

	_, err := svc.Reserve(context.Background(), "missing", 1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReserve_InvalidQuantity(t *testing.T) {
	svc, _ := setup(t, 1)

	if _, err := svc.Reserve(context.Background(), "p1", 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.Release(context.Background(), "p1", -2); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestReserveRelease_RoundTrip(t *testing.T) {
	svc, cat := setup(t, 4)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, "p1", 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.Release(ctx, "p1", 3); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := cat.Get(ctx, "p1")
	if got.Stock != 4 {
		t.Errorf("expected stock restored to 4, got %d", got.Stock)
	}
}

func TestRelease_NoUpperBound(t *testing.T) {
	svc, cat := setup(t, 0)
	ctx := context.Background()

	if _, err := svc.Release(ctx, "p1", 10); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := cat.Get(ctx, "p1")
	if got.Stock != 10 {
		t.Errorf("expected stock 10, got %d", got.Stock)
	}
}

func TestRelease_NotFound(t *testing.T) {
	svc, _ := setup(t, 0)

	_, err := svc.Release(context.Background(), "gone", 1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReserve_Concurrent(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	svc, cat := setup(t, initialStock)
	ctx := context.Background()

	var successCount atomic.Int32
	var insufficientCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, "p1", 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficientCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if insufficientCount.Load() != int32(totalRequests-initialStock) {
		t.Errorf("expected %d insufficient, got %d", totalRequests-initialStock, insufficientCount.Load())
	}
	got, _ := cat.Get(ctx, "p1")
	if got.Stock != 0 {
		t.Errorf("expected stock 0, got %d", got.Stock)
	}
}

func TestReserver_RecordsMetrics(t *testing.T) {
	svc, _ := setup(t, 1)
	reg := prometheus.NewRegistry()
	svc.Reserver.Metrics = metrics.New(reg, "test")
	ctx := context.Background()

	_, _ = svc.Reserve(ctx, "p1", 1)
	_, _ = svc.Reserve(ctx, "p1", 1)
	_, _ = svc.Release(ctx, "p1", 1)

	m := svc.Reserver.Metrics
	if got := testutil.ToFloat64(m.Reservations.WithLabelValues("reserved")); got != 1 {
		t.Errorf("expected 1 reserved, got %v", got)
	}
	if got := testutil.ToFloat64(m.Reservations.WithLabelValues("insufficient")); got != 1 {
		t.Errorf("expected 1 insufficient, got %v", got)
	}
	if got := testutil.ToFloat64(m.Releases); got != 1 {
		t.Errorf("expected 1 released, got %v", got)
	}
}
