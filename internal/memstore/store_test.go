package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
	"github.com/ariefcatur/go-order-inventory/internal/port"
)

func seed(t *testing.T, s *Store, p domain.Product) {
	t.Helper()
	err := s.InTx(context.Background(), func(ctx context.Context, tx port.Tx) error {
		_, err := tx.Products().SaveProduct(ctx, p)
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func stockOf(t *testing.T, s *Store, id string) int {
	t.Helper()
	var stock int
	_ = s.InTx(context.Background(), func(ctx context.Context, tx port.Tx) error {
		p, _ := tx.Products().FindProduct(ctx, id)
		if p == nil {
			t.Fatalf("product %s missing", id)
		}
		stock = p.Stock
		return nil
	})
	return stock
}

func TestInTx_RollbackOnError(t *testing.T) {
	s := New()
	seed(t, s, domain.Product{ID: "p1", UnitPrice: decimal.NewFromInt(10), Stock: 5})

	boom := errors.New("boom")
	err := s.InTx(context.Background(), func(ctx context.Context, tx port.Tx) error {
		p, _ := tx.Products().FindProductForUpdate(ctx, "p1")
		p.Stock = 1
		if _, err := tx.Products().SaveProduct(ctx, *p); err != nil {
			return err
		}
		if _, err := tx.Orders().SaveOrder(ctx, domain.Order{ID: "o1"}); err != nil {
			return err
		}
		if _, err := tx.Orders().SaveLineItem(ctx, domain.LineItem{ID: "l1", OrderID: "o1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := stockOf(t, s, "p1"); got != 5 {
		t.Errorf("expected stock 5 after rollback, got %d", got)
	}
	if len(s.orders) != 0 || len(s.lines) != 0 {
		t.Errorf("expected no orders or lines after rollback, got %d/%d", len(s.orders), len(s.lines))
	}
}

func TestInTx_RollbackOnPanic(t *testing.T) {
	s := New()
	seed(t, s, domain.Product{ID: "p1", Stock: 5})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = s.InTx(context.Background(), func(ctx context.Context, tx port.Tx) error {
			_, _ = tx.Products().SaveProduct(ctx, domain.Product{ID: "p1", Stock: 0})
			panic("kaboom")
		})
	}()

	if got := stockOf(t, s, "p1"); got != 5 {
		t.Errorf("expected stock 5 after panic rollback, got %d", got)
	}
}

func TestDeleteOrder_CascadesAndRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		_, _ = tx.Orders().SaveOrder(ctx, domain.Order{ID: "o1"})
		_, _ = tx.Orders().SaveLineItem(ctx, domain.LineItem{ID: "l2", OrderID: "o1", Position: 1, ProductIDs: []string{"b"}})
		_, _ = tx.Orders().SaveLineItem(ctx, domain.LineItem{ID: "l1", OrderID: "o1", Position: 0, ProductIDs: []string{"a"}})
		return nil
	})

	_ = s.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		o, _ := tx.Orders().FindOrder(ctx, "o1")
		if o == nil || len(o.LineItems) != 2 {
			t.Fatalf("expected order with 2 lines, got %+v", o)
		}
		if o.LineItems[0].ID != "l1" || o.LineItems[1].ID != "l2" {
			t.Errorf("expected lines ordered by position, got %s,%s", o.LineItems[0].ID, o.LineItems[1].ID)
		}
		return nil
	})

	_ = s.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		_ = tx.Orders().DeleteOrder(ctx, "o1")
		return errors.New("abort")
	})
	if len(s.orders) != 1 || len(s.lines) != 2 {
		t.Fatalf("expected delete to be undone, got %d orders %d lines", len(s.orders), len(s.lines))
	}

	_ = s.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		return tx.Orders().DeleteOrder(ctx, "o1")
	})
	if len(s.orders) != 0 || len(s.lines) != 0 {
		t.Errorf("expected cascade delete, got %d orders %d lines", len(s.orders), len(s.lines))
	}
}

func TestInTx_CanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("fn must not run on a canceled context")
	}
}
