package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced          = "OrderPlaced"
	EventOrderUpdated         = "OrderUpdated"
	EventOrderCancelled       = "OrderCancelled"
	EventOrderCancelRequested = "OrderCancelRequested"
)

const (
	TopicOrderPlaced          = "order.placed"
	TopicOrderUpdated         = "order.updated"
	TopicOrderCancelled       = "order.cancelled"
	TopicOrderCancelRequested = "order.cancel.requested"
)

// Partition key = order_id so every event of one order stays ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type LineSummary struct {
	LineItemID       string          `json:"line_item_id"`
	QuantityReserved int             `json:"quantity_reserved"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit"`
}

type OrderPlacedPayload struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	PlacedDate    time.Time       `json:"placed_date"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalQuantity int             `json:"total_quantity"`
	Lines         []LineSummary   `json:"lines"`
}

type OrderUpdatedPayload struct {
	OrderID       string          `json:"order_id"`
	PlacedDate    time.Time       `json:"placed_date"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalQuantity int             `json:"total_quantity"`
}

type ReleasedUnits struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCancelledPayload struct {
	OrderID  string          `json:"order_id"`
	Released []ReleasedUnits `json:"released"`
}

type OrderCancelRequestedPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}
