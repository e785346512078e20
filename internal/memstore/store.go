// Package memstore is an in-process single-authority store. Transactions are
// serialised by one mutex; writes go straight to the maps and are undone from
// a journal when the transaction fails.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
	"github.com/ariefcatur/go-order-inventory/internal/port"
)

type Store struct {
	mu       sync.Mutex
	products map[string]domain.Product
	orders   map[string]domain.Order
	lines    map[string]domain.LineItem
}

func New() *Store {
	return &Store{
		products: map[string]domain.Product{},
		orders:   map[string]domain.Order{},
		lines:    map[string]domain.LineItem{},
	}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s}
	defer func() {
		if r := recover(); r != nil {
			t.rollback()
			panic(r)
		}
	}()
	if err := fn(ctx, t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) Products() port.ProductStore { return productStore{t} }
func (t *tx) Orders() port.OrderStore     { return orderStore{t} }

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) putProduct(p domain.Product) {
	prev, existed := t.s.products[p.ID]
	t.s.products[p.ID] = p
	t.undo = append(t.undo, func() {
		if existed {
			t.s.products[p.ID] = prev
		} else {
			delete(t.s.products, p.ID)
		}
	})
}

func (t *tx) putOrder(o domain.Order) {
	prev, existed := t.s.orders[o.ID]
	t.s.orders[o.ID] = o
	t.undo = append(t.undo, func() {
		if existed {
			t.s.orders[o.ID] = prev
		} else {
			delete(t.s.orders, o.ID)
		}
	})
}

func (t *tx) removeOrder(id string) {
	prev, existed := t.s.orders[id]
	if !existed {
		return
	}
	delete(t.s.orders, id)
	t.undo = append(t.undo, func() { t.s.orders[id] = prev })
}

func (t *tx) putLine(li domain.LineItem) {
	prev, existed := t.s.lines[li.ID]
	t.s.lines[li.ID] = li
	t.undo = append(t.undo, func() {
		if existed {
			t.s.lines[li.ID] = prev
		} else {
			delete(t.s.lines, li.ID)
		}
	})
}

func (t *tx) removeLine(id string) {
	prev, existed := t.s.lines[id]
	if !existed {
		return
	}
	delete(t.s.lines, id)
	t.undo = append(t.undo, func() { t.s.lines[id] = prev })
}

type productStore struct{ t *tx }

func (p productStore) FindProduct(_ context.Context, id string) (*domain.Product, error) {
	prod, ok := p.t.s.products[id]
	if !ok {
		return nil, nil
	}
	return &prod, nil
}

// FindProductForUpdate needs no extra locking: the transaction already holds
// the store mutex.
func (p productStore) FindProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return p.FindProduct(ctx, id)
}

func (p productStore) SaveProduct(_ context.Context, prod domain.Product) (domain.Product, error) {
	p.t.putProduct(prod)
	return prod, nil
}

type orderStore struct{ t *tx }

func (o orderStore) SaveOrder(_ context.Context, ord domain.Order) (domain.Order, error) {
	row := ord
	row.LineItems = nil
	o.t.putOrder(row)
	return ord, nil
}

func (o orderStore) FindOrder(_ context.Context, id string) (*domain.Order, error) {
	ord, ok := o.t.s.orders[id]
	if !ok {
		return nil, nil
	}
	for _, li := range o.t.s.lines {
		if li.OrderID == id {
			ord.LineItems = append(ord.LineItems, copyLine(li))
		}
	}
	sort.Slice(ord.LineItems, func(i, j int) bool {
		return ord.LineItems[i].Position < ord.LineItems[j].Position
	})
	return &ord, nil
}

func (o orderStore) FindOrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return o.FindOrder(ctx, id)
}

func (o orderStore) DeleteOrder(_ context.Context, id string) error {
	for lid, li := range o.t.s.lines {
		if li.OrderID == id {
			o.t.removeLine(lid)
		}
	}
	o.t.removeOrder(id)
	return nil
}

func (o orderStore) SaveLineItem(_ context.Context, li domain.LineItem) (domain.LineItem, error) {
	o.t.putLine(copyLine(li))
	return li, nil
}

func (o orderStore) FindLineItem(_ context.Context, id string) (*domain.LineItem, error) {
	li, ok := o.t.s.lines[id]
	if !ok {
		return nil, nil
	}
	li = copyLine(li)
	return &li, nil
}

func (o orderStore) DeleteLineItem(_ context.Context, id string) error {
	o.t.removeLine(id)
	return nil
}

func copyLine(li domain.LineItem) domain.LineItem {
	li.ProductIDs = append([]string(nil), li.ProductIDs...)
	return li
}
