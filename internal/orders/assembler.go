package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-order-inventory/internal/catalog"
	"github.com/ariefcatur/go-order-inventory/internal/domain"
	"github.com/ariefcatur/go-order-inventory/internal/reservation"
)

// Assembler turns requested product ids into a priced line item, reserving
// one unit per occurrence.
type Assembler struct {
	Reserver *reservation.Reserver
	Policy   Policy
	Logger   *zap.Logger
}

func (a *Assembler) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// Assemble reserves the requested units in order. The returned line has no
// identity yet. Under PolicyBestEffort a line may come back with zero
// quantity and zero price; callers treat it as a no-op.
func (a *Assembler) Assemble(ctx context.Context, cat *catalog.Catalog, productIDs []string) (domain.LineItem, error) {
	sum := decimal.Zero
	reserved := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		p, err := a.Reserver.Reserve(ctx, cat, id, 1)
		if err != nil {
			if a.Policy == PolicyBestEffort && errors.Is(err, domain.ErrInsufficientStock) {
				a.logger().Info("skipping unavailable unit", zap.String("product_id", id))
				continue
			}
			return domain.LineItem{}, err
		}
		sum = sum.Add(p.UnitPrice)
		reserved = append(reserved, id)
	}

	li := domain.LineItem{
		QuantityReserved: len(reserved),
		PricePerUnit:     decimal.Zero,
		ProductIDs:       reserved,
	}
	if n := len(reserved); n > 0 {
		li.PricePerUnit = sum.Div(decimal.NewFromInt(int64(n)))
	}
	return li, nil
}

// Release gives back every unit the line reserved, one release per product
// reference. Products deleted from the catalog since the reservation have
// nowhere to return stock to and are skipped.
func (a *Assembler) Release(ctx context.Context, cat *catalog.Catalog, li domain.LineItem) ([]domain.ReleasedUnits, error) {
	counts := map[string]int{}
	order := make([]string, 0, len(li.ProductIDs))
	for _, id := range li.ProductIDs {
		if _, err := a.Reserver.Release(ctx, cat, id, 1); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				a.logger().Warn("released unit of deleted product",
					zap.String("line_item_id", li.ID), zap.String("product_id", id))
				continue
			}
			return nil, fmt.Errorf("release line %s: %w", li.ID, err)
		}
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	out := make([]domain.ReleasedUnits, 0, len(order))
	for _, id := range order {
		out = append(out, domain.ReleasedUnits{ProductID: id, Qty: counts[id]})
	}
	return out, nil
}
