package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

// ViewCache stores order views as JSON under KeyOrderView.
type ViewCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewViewCache(rdb redis.Cmdable, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = TTLOrderView
	}
	return &ViewCache{rdb: rdb, ttl: ttl}
}

func (c *ViewCache) GetOrderView(ctx context.Context, orderID string) (*domain.OrderView, error) {
	b, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrderView, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v domain.OrderView
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode order view: %w", err)
	}
	return &v, nil
}

func (c *ViewCache) SetOrderView(ctx context.Context, v domain.OrderView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(KeyOrderView, v.ID), b, c.ttl).Err()
}

func (c *ViewCache) InvalidateOrderView(ctx context.Context, orderID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(KeyOrderView, orderID)).Err()
}
