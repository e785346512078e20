package redisx

import "time"

const (
	// order_view:{order_id} -> JSON OrderView
	KeyOrderView = "order_view:%s"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderView = 5 * time.Minute
	TTLDedup     = 48 * time.Hour
)
