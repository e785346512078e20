// Package cancellation consumes cancel requests from the bus and turns them
// into order cancellations.
package cancellation

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
	kafkax "github.com/ariefcatur/go-order-inventory/internal/kafka"
)

type Canceller interface {
	CancelOrder(ctx context.Context, orderID string) error
}

// Deduper remembers which events were already handled.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Service struct {
	Orders Canceller
	Dedup  Deduper // optional
	Logger *zap.Logger
}

// HandleCancelRequested is the consumer handler for order.cancel.requested.
// Malformed messages and unknown orders are logged and committed. Any other
// failure releases the dedup claim and is returned; the consumer retries the
// same message until it succeeds and only then commits its offset.
func (s *Service) HandleCancelRequested(ctx context.Context, m kafkago.Message) error {
	log := s.logger()
	ctx = kafkax.ExtractContext(ctx, m)

	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		log.Error("dropping malformed message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != domain.EventOrderCancelRequested {
		return nil
	}
	p, err := kafkax.UnwrapPayload[domain.OrderCancelRequestedPayload](env.Payload)
	if err != nil || p.OrderID == "" {
		log.Error("dropping cancel request without order id", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	if s.Dedup != nil && env.EventID != "" {
		first, err := s.Dedup.Claim(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup claim: %w", err)
		}
		if !first {
			log.Debug("duplicate cancel request", zap.String("event_id", env.EventID))
			return nil
		}
	}

	err = s.Orders.CancelOrder(ctx, p.OrderID)
	switch {
	case err == nil:
		log.Info("order cancelled from request",
			zap.String("order_id", p.OrderID), zap.String("reason", p.Reason), zap.String("event_id", env.EventID))
		return nil
	case errors.Is(err, domain.ErrNotFound):
		log.Info("cancel request for unknown order", zap.String("order_id", p.OrderID))
		return nil
	default:
		if s.Dedup != nil && env.EventID != "" {
			if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
				log.Warn("dedup forget failed", zap.String("event_id", env.EventID), zap.Error(ferr))
			}
		}
		return fmt.Errorf("cancel order %s: %w", p.OrderID, err)
	}
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
