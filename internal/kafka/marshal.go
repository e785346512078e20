package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

func DecodeEnvelope(b []byte) (domain.Envelope, error) {
	var env domain.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// UnwrapPayload decodes an envelope payload into its concrete type.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
