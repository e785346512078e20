package orders

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

func TestAggregate_TwoLines(t *testing.T) {
	lines := []domain.LineItem{
		{QuantityReserved: 2, PricePerUnit: decimal.RequireFromString("5.0")},
		{QuantityReserved: 1, PricePerUnit: decimal.RequireFromString("9.0")},
	}

	price, qty := Aggregate(lines)
	if !price.Equal(decimal.RequireFromString("19.0")) {
		t.Errorf("expected total price 19.0, got %s", price)
	}
	if qty != 3 {
		t.Errorf("expected total quantity 3, got %d", qty)
	}
}

func TestAggregate_Empty(t *testing.T) {
	price, qty := Aggregate(nil)
	if !price.IsZero() || qty != 0 {
		t.Errorf("expected (0, 0), got (%s, %d)", price, qty)
	}
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{
		"":               PolicyAllOrNothing,
		"all_or_nothing": PolicyAllOrNothing,
		" Best_Effort ":  PolicyBestEffort,
	}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePolicy("lenient"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
