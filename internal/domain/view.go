package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderView is the read model handed to the request layer and cached in Redis.
type OrderView struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Status        Status          `json:"status"`
	PlacedDate    time.Time       `json:"placed_date"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalQuantity int             `json:"total_quantity"`
	LineItems     []LineItemView  `json:"line_items"`
}

type LineItemView struct {
	ID               string          `json:"id"`
	QuantityReserved int             `json:"quantity_reserved"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit"`
	ProductIDs       []string        `json:"product_ids"`
}

func NewOrderView(o Order) OrderView {
	v := OrderView{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PlacedDate:    o.PlacedDate,
		TotalPrice:    o.TotalPrice,
		TotalQuantity: o.TotalQuantity,
		LineItems:     make([]LineItemView, 0, len(o.LineItems)),
	}
	for _, li := range o.LineItems {
		v.LineItems = append(v.LineItems, LineItemView{
			ID:               li.ID,
			QuantityReserved: li.QuantityReserved,
			PricePerUnit:     li.PricePerUnit,
			ProductIDs:       append([]string(nil), li.ProductIDs...),
		})
	}
	return v
}
