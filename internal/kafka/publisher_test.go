package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

type captured struct {
	key, value []byte
	headers    []kafka.Header
}

type fakeSink struct{ msgs []captured }

func (f *fakeSink) Publish(_ context.Context, key, value []byte, headers ...kafka.Header) error {
	f.msgs = append(f.msgs, captured{key: key, value: value, headers: headers})
	return nil
}

func header(hs []kafka.Header, key string) string {
	for _, h := range hs {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublisher_RoutesByTopicWithHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	placed := &fakeSink{}
	p := &Publisher{sinks: map[string]sink{domain.TopicOrderPlaced: placed}}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	env := domain.Envelope{
		EventID:      "e-1",
		EventType:    domain.EventOrderPlaced,
		EventVersion: 1,
		OccurredAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload:      json.RawMessage(`{"order_id":"o-1"}`),
	}
	if err := p.Publish(ctx, domain.TopicOrderPlaced, []byte("o-1"), env); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(placed.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(placed.msgs))
	}
	msg := placed.msgs[0]
	if string(msg.key) != "o-1" {
		t.Errorf("expected key o-1, got %s", msg.key)
	}
	if got := header(msg.headers, HeaderEventType); got != domain.EventOrderPlaced {
		t.Errorf("expected event type header, got %q", got)
	}
	if got := header(msg.headers, HeaderEventVersion); got != "1" {
		t.Errorf("expected version header 1, got %q", got)
	}
	if header(msg.headers, "traceparent") == "" {
		t.Error("expected traceparent header")
	}

	decoded, err := DecodeEnvelope(msg.value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.EventID != "e-1" || decoded.EventType != domain.EventOrderPlaced {
		t.Errorf("unexpected envelope: %+v", decoded)
	}

	restored := trace.SpanContextFromContext(ExtractContext(context.Background(), kafka.Message{Headers: msg.headers}))
	if restored.TraceID() != traceID {
		t.Errorf("expected trace id %s, got %s", traceID, restored.TraceID())
	}
}

func TestPublisher_UnknownTopic(t *testing.T) {
	p := &Publisher{sinks: map[string]sink{}}
	if err := p.Publish(context.Background(), "nope", nil, domain.Envelope{}); err == nil {
		t.Error("expected error for unknown topic")
	}
}

func TestProducer_PublishAfterClose(t *testing.T) {
	prod := NewProducer([]string{"localhost:9092"}, "t", 1, nil)
	prod.Close()
	if err := prod.Publish(context.Background(), nil, nil); err != ErrProducerClosed {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestProducer_PublishRespectsContext(t *testing.T) {
	prod := NewProducer([]string{"localhost:9092"}, "t", 1, nil)
	defer prod.Close()
	if err := prod.Publish(context.Background(), nil, []byte("fills inbox")); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := prod.Publish(ctx, nil, []byte("blocked")); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestUnwrapPayload(t *testing.T) {
	p, err := UnwrapPayload[domain.OrderCancelRequestedPayload](json.RawMessage(`{"order_id":"o-9","reason":"user"}`))
	if err != nil || p.OrderID != "o-9" || p.Reason != "user" {
		t.Errorf("unexpected payload %+v, %v", p, err)
	}
	if _, err := UnwrapPayload[domain.OrderCancelRequestedPayload](json.RawMessage(`{`)); err == nil {
		t.Error("expected decode error")
	}
}
