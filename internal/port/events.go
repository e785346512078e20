package port

import (
	"context"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, env domain.Envelope) error
}

// ViewCache is a read-through cache for order views. A miss is (nil, nil).
type ViewCache interface {
	GetOrderView(ctx context.Context, orderID string) (*domain.OrderView, error)
	SetOrderView(ctx context.Context, v domain.OrderView) error
	InvalidateOrderView(ctx context.Context, orderID string) error
}
