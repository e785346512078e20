package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Dedup marks processed event ids per consuming service.
type Dedup struct {
	rdb     redis.Cmdable
	service string
}

func NewDedup(rdb redis.Cmdable, service string) *Dedup {
	return &Dedup{rdb: rdb, service: service}
}

// Claim returns true for the first caller of an event id; later callers get
// false until the key expires or Forget is called.
func (d *Dedup) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, d.key(eventID), "1", TTLDedup).Result()
}

// Forget drops a claim so a redelivered message is processed again.
func (d *Dedup) Forget(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, d.key(eventID)).Err()
}

func (d *Dedup) key(eventID string) string {
	return fmt.Sprintf(KeyDedup, d.service, eventID)
}
