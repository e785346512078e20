package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

// sink is the part of Producer the Publisher needs.
type sink interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// Publisher routes envelopes to one producer per topic and carries the
// trace context in the message headers.
type Publisher struct {
	sinks     map[string]sink
	producers []*Producer
}

func NewPublisher(brokers []string, topics []string, buf int, log *zap.Logger) *Publisher {
	p := &Publisher{sinks: make(map[string]sink, len(topics))}
	for _, t := range topics {
		prod := NewProducer(brokers, t, buf, log)
		prod.Start()
		p.sinks[t] = prod
		p.producers = append(p.producers, prod)
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, topic string, key []byte, env domain.Envelope) error {
	s, ok := p.sinks[topic]
	if !ok {
		return fmt.Errorf("no producer for topic %q", topic)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return s.Publish(ctx, key, b, Headers(ctx, env)...)
}

// Close flushes and stops every producer.
func (p *Publisher) Close() {
	for _, prod := range p.producers {
		prod.Close()
	}
	for _, prod := range p.producers {
		prod.WaitClosed()
	}
}

// Headers builds the event metadata headers plus the propagated trace
// context of ctx.
func Headers(ctx context.Context, env domain.Envelope) []kafka.Header {
	hs := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(env.EventType)},
		{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(env.EventVersion))},
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}

// ExtractContext restores the trace context carried in m's headers.
func ExtractContext(ctx context.Context, m kafka.Message) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range m.Headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
