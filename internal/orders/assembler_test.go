package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-order-inventory/internal/catalog"
	"github.com/ariefcatur/go-order-inventory/internal/domain"
	"github.com/ariefcatur/go-order-inventory/internal/memstore"
	"github.com/ariefcatur/go-order-inventory/internal/port"
	"github.com/ariefcatur/go-order-inventory/internal/reservation"
)

func assemble(t *testing.T, store *memstore.Store, policy Policy, ids ...string) (domain.LineItem, error) {
	t.Helper()
	a := &Assembler{Reserver: &reservation.Reserver{}, Policy: policy}
	var li domain.LineItem
	err := store.InTx(context.Background(), func(ctx context.Context, tx port.Tx) error {
		var err error
		li, err = a.Assemble(ctx, catalog.New(tx.Products()), ids)
		return err
	})
	return li, err
}

func TestAssemble_AveragesUnitPrices(t *testing.T) {
	store := newStore(t,
		domain.Product{ID: "a", UnitPrice: decimal.RequireFromString("10.00"), Stock: 5},
		domain.Product{ID: "b", UnitPrice: decimal.RequireFromString("20.00"), Stock: 5},
	)

	li, err := assemble(t, store, PolicyAllOrNothing, "a", "b", "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if li.QuantityReserved != 4 {
		t.Errorf("expected quantity 4, got %d", li.QuantityReserved)
	}
	if !li.PricePerUnit.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected price per unit 15, got %s", li.PricePerUnit)
	}
	want := []string{"a", "b", "a", "b"}
	for i, id := range want {
		if li.ProductIDs[i] != id {
			t.Fatalf("expected product ids %v, got %v", want, li.ProductIDs)
		}
	}
	assertStock(t, store, "a", 3)
	assertStock(t, store, "b", 3)
}

func TestAssemble_BestEffortSkipsUnavailable(t *testing.T) {
	store := newStore(t,
		domain.Product{ID: "a", UnitPrice: decimal.NewFromInt(10), Stock: 1},
		domain.Product{ID: "b", UnitPrice: decimal.NewFromInt(30), Stock: 0},
	)

	li, err := assemble(t, store, PolicyBestEffort, "a", "b", "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if li.QuantityReserved != 1 || !li.PricePerUnit.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected 1 unit at 10, got %d at %s", li.QuantityReserved, li.PricePerUnit)
	}
	assertStock(t, store, "a", 0)
}

func TestAssemble_BestEffortNothingReserved(t *testing.T) {
	store := newStore(t, domain.Product{ID: "b", UnitPrice: decimal.NewFromInt(30), Stock: 0})

	li, err := assemble(t, store, PolicyBestEffort, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if li.QuantityReserved != 0 || !li.PricePerUnit.IsZero() {
		t.Errorf("expected zero line, got %d at %s", li.QuantityReserved, li.PricePerUnit)
	}
}

func TestAssemble_AllOrNothingFails(t *testing.T) {
	store := newStore(t,
		domain.Product{ID: "a", UnitPrice: decimal.NewFromInt(10), Stock: 1},
		domain.Product{ID: "b", UnitPrice: decimal.NewFromInt(30), Stock: 0},
	)

	_, err := assemble(t, store, PolicyAllOrNothing, "a", "b")
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	assertStock(t, store, "a", 1)
}

func TestAssemble_NotFoundAbortsUnderBothPolicies(t *testing.T) {
	for _, policy := range []Policy{PolicyAllOrNothing, PolicyBestEffort} {
		store := newStore(t, domain.Product{ID: "a", UnitPrice: decimal.NewFromInt(10), Stock: 2})

		_, err := assemble(t, store, policy, "a", "ghost")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", policy, err)
		}
		assertStock(t, store, "a", 2)
	}
}

func TestAssemblerRelease_SkipsDeletedProducts(t *testing.T) {
	store := newStore(t, domain.Product{ID: "a", UnitPrice: decimal.NewFromInt(10), Stock: 0})
	a := &Assembler{Reserver: &reservation.Reserver{}}

	var units []domain.ReleasedUnits
	err := store.InTx(context.Background(), func(ctx context.Context, tx port.Tx) error {
		var err error
		units, err = a.Release(ctx, catalog.New(tx.Products()), domain.LineItem{
			ID: "l1", ProductIDs: []string{"a", "gone", "a"},
		})
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 1 || units[0].ProductID != "a" || units[0].Qty != 2 {
		t.Errorf("unexpected released units: %+v", units)
	}
	assertStock(t, store, "a", 2)
}
