package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Stock     int
	Version   int // bumped on every stock write
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is owned by exactly one Order. ProductIDs holds one entry per
// reserved unit, in the order the caller requested them.
type LineItem struct {
	ID               string
	OrderID          string
	Position         int
	QuantityReserved int
	PricePerUnit     decimal.Decimal // snapshot taken at reservation time
	ProductIDs       []string
	CreatedAt        time.Time
}

type Order struct {
	ID            string
	UserID        string
	Status        Status
	PlacedDate    time.Time
	TotalPrice    decimal.Decimal // derived, see orders.Aggregate
	TotalQuantity int             // derived, see orders.Aggregate
	Version       int             // bumped on every committed change
	LineItems     []LineItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LineItemIndex returns the position of the line with the given id in
// o.LineItems, or -1.
func (o *Order) LineItemIndex(id string) int {
	for i := range o.LineItems {
		if o.LineItems[i].ID == id {
			return i
		}
	}
	return -1
}
