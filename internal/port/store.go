package port

import (
	"context"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

// ProductStore is the persistence side of the catalog. Find methods return
// (nil, nil) when the product does not exist.
type ProductStore interface {
	FindProduct(ctx context.Context, id string) (*domain.Product, error)

	// FindProductForUpdate reads the product and holds it exclusively until
	// the surrounding transaction ends.
	FindProductForUpdate(ctx context.Context, id string) (*domain.Product, error)

	SaveProduct(ctx context.Context, p domain.Product) (domain.Product, error)
}

// OrderStore persists orders and their line items. Find methods return
// (nil, nil) when the record does not exist.
type OrderStore interface {
	// SaveOrder upserts the order row only; line items are saved separately.
	SaveOrder(ctx context.Context, o domain.Order) (domain.Order, error)

	// FindOrder loads the order with its line items ordered by position.
	FindOrder(ctx context.Context, id string) (*domain.Order, error)

	// FindOrderForUpdate is FindOrder plus an exclusive lock on the order.
	FindOrderForUpdate(ctx context.Context, id string) (*domain.Order, error)

	// DeleteOrder removes the order and, by cascade, its line items.
	DeleteOrder(ctx context.Context, id string) error

	SaveLineItem(ctx context.Context, li domain.LineItem) (domain.LineItem, error)
	FindLineItem(ctx context.Context, id string) (*domain.LineItem, error)
	DeleteLineItem(ctx context.Context, id string) error
}

type Tx interface {
	Products() ProductStore
	Orders() OrderStore
}

// UnitOfWork runs fn in one atomic transaction. If fn returns an error or
// panics, every write made through tx is undone.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
