// Package catalog owns product records and is the only writer of the
// authoritative stock counter.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
	"github.com/ariefcatur/go-order-inventory/internal/port"
)

// Catalog is bound to the product store of one transaction.
type Catalog struct {
	store port.ProductStore
	now   func() time.Time
}

func New(store port.ProductStore) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

func (c *Catalog) Get(ctx context.Context, id string) (domain.Product, error) {
	p, err := c.store.FindProduct(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("find product: %w", err)
	}
	if p == nil {
		return domain.Product{}, domain.NotFound("product", id)
	}
	return *p, nil
}

// Lock reads the product and holds its row until the transaction ends.
func (c *Catalog) Lock(ctx context.Context, id string) (domain.Product, error) {
	p, err := c.store.FindProductForUpdate(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("lock product: %w", err)
	}
	if p == nil {
		return domain.Product{}, domain.NotFound("product", id)
	}
	return *p, nil
}

// LockAll locks the distinct ids in ascending order. Missing products are
// skipped; the caller sees NotFound when it touches them.
func (c *Catalog) LockAll(ctx context.Context, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)
	for _, id := range uniq {
		if _, err := c.store.FindProductForUpdate(ctx, id); err != nil {
			return fmt.Errorf("lock product %s: %w", id, err)
		}
	}
	return nil
}

func (c *Catalog) SetStock(ctx context.Context, id string, newStock int) (domain.Product, error) {
	if newStock < 0 {
		return domain.Product{}, fmt.Errorf("stock of product %s would become %d: %w", id, newStock, domain.ErrInvalidState)
	}
	p, err := c.Lock(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	p.Stock = newStock
	p.Version++
	p.UpdatedAt = c.now()
	saved, err := c.store.SaveProduct(ctx, p)
	if err != nil {
		return domain.Product{}, fmt.Errorf("save product: %w", err)
	}
	return saved, nil
}

// Save upserts a product record. Used by catalog management, never by the
// reservation path.
func (c *Catalog) Save(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		return domain.Product{}, fmt.Errorf("product id is required: %w", domain.ErrInvalidArgument)
	}
	if p.Stock < 0 || p.UnitPrice.IsNegative() {
		return domain.Product{}, fmt.Errorf("product %s has negative stock or price: %w", p.ID, domain.ErrInvalidState)
	}
	now := c.now()
	existing, err := c.store.FindProductForUpdate(ctx, p.ID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("lock product: %w", err)
	}
	if existing != nil {
		p.CreatedAt = existing.CreatedAt
		p.Version = existing.Version + 1
	} else {
		p.CreatedAt = now
		p.Version = 0
	}
	p.UpdatedAt = now
	saved, err := c.store.SaveProduct(ctx, p)
	if err != nil {
		return domain.Product{}, fmt.Errorf("save product: %w", err)
	}
	return saved, nil
}

// Service runs each catalog operation in its own transaction.
type Service struct {
	UoW port.UnitOfWork
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	var out domain.Product
	err := s.UoW.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		p, err := New(tx.Products()).Get(ctx, id)
		out = p
		return err
	})
	return out, err
}

func (s *Service) SetStock(ctx context.Context, id string, newStock int) (domain.Product, error) {
	var out domain.Product
	err := s.UoW.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		p, err := New(tx.Products()).SetStock(ctx, id, newStock)
		out = p
		return err
	})
	return out, err
}

func (s *Service) Save(ctx context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := s.UoW.InTx(ctx, func(ctx context.Context, tx port.Tx) error {
		saved, err := New(tx.Products()).Save(ctx, p)
		out = saved
		return err
	})
	return out, err
}
