package orders

import (
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

// Aggregate derives an order's totals from its line items. It is the only
// writer of Order.TotalPrice and Order.TotalQuantity.
func Aggregate(lines []domain.LineItem) (totalPrice decimal.Decimal, totalQuantity int) {
	totalPrice = decimal.Zero
	for _, li := range lines {
		totalPrice = totalPrice.Add(li.PricePerUnit.Mul(decimal.NewFromInt(int64(li.QuantityReserved))))
		totalQuantity += li.QuantityReserved
	}
	return totalPrice, totalQuantity
}
