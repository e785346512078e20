// Package reservation is the only mutation path for product stock.
package reservation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-order-inventory/internal/catalog"
	"github.com/ariefcatur/go-order-inventory/internal/domain"
	"github.com/ariefcatur/go-order-inventory/internal/metrics"
	"github.com/ariefcatur/go-order-inventory/internal/port"
)

// Reserver performs reserve/release against a transaction-bound catalog.
// The check and the write happen under the product's row lock, so they are
// indivisible with respect to other reservations on the same product.
type Reserver struct {
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func (r *Reserver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Reserve takes qty units of the product. The returned snapshot carries the
// unit price as of the locked read.
func (r *Reserver) Reserve(ctx context.Context, cat *catalog.Catalog, productID string, qty int) (domain.Product, error) {
	if qty <= 0 {
		return domain.Product{}, fmt.Errorf("reserve %d units of %s: %w", qty, productID, domain.ErrInvalidArgument)
	}
	p, err := cat.Lock(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.Metrics.Reservation("not_found")
		}
		return domain.Product{}, err
	}
	if p.Stock < qty {
		r.Metrics.Reservation("insufficient")
		return domain.Product{}, &domain.InsufficientStockError{
			ProductID: productID, Requested: qty, Available: p.Stock,
		}
	}
	updated, err := cat.SetStock(ctx, productID, p.Stock-qty)
	if err != nil {
		return domain.Product{}, err
	}
	r.Metrics.Reservation("reserved")
	r.logger().Debug("stock reserved",
		zap.String("product_id", productID), zap.Int("qty", qty), zap.Int("stock", updated.Stock))
	// price snapshot is from the locked read, identical to updated.UnitPrice
	p.Stock = updated.Stock
	p.Version = updated.Version
	p.UpdatedAt = updated.UpdatedAt
	return p, nil
}

// Release returns qty units to stock. Stock has no upper bound.
func (r *Reserver) Release(ctx context.Context, cat *catalog.Catalog, productID string, qty int) (domain.Product, error) {
	if qty <= 0 {
		return domain.Product{}, fmt.Errorf("release %d units of %s: %w", qty, productID, domain.ErrInvalidArgument)
	}
	p, err := cat.Lock(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	updated, err := cat.SetStock(ctx, productID, p.Stock+qty)
	if err != nil {
		return domain.Product{}, err
	}
	r.Metrics.Released(qty)
	r.logger().Debug("stock released",
		zap.String("product_id", productID), zap.Int("qty", qty), zap.Int("stock", updated.Stock))
	return updated, nil
}

// Service runs each reservation in its own transaction.
type Service struct {
	UoW      port.UnitOfWork
	Reserver *Reserver
}

func NewService(uow port.UnitOfWork, r *Reserver) *Service {
	if r == nil {
		r = &Reserver{}
	}
	return &Service{UoW: uow, Reserver: r}
}

func (s *Service) Reserve(ctx context.Context, productID string, qty int) (domain.Product, error) {
	var out domain.Product
	err := s.UoW.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		p, err := s.Reserver.Reserve(ctx, catalog.New(tx.Products()), productID, qty)
		out = p
		return err
	})
	return out, err
}

func (s *Service) Release(ctx context.Context, productID string, qty int) (domain.Product, error) {
	var out domain.Product
	err := s.UoW.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		p, err := s.Reserver.Release(ctx, catalog.New(tx.Products()), productID, qty)
		out = p
		return err
	})
	return out, err
}
