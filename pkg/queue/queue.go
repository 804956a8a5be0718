package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService is the enqueue-only side handed to producers (the
// ingest processor requesting rescans).
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// MessageHandler processes a dequeued message.
type MessageHandler func(context.Context, interface{}) error

// QueueConfig sizes the worker pool and retry behavior.
type QueueConfig struct {
	Workers    int
	QueueSize  int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is one queued unit of work.
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Attempts  int
	Timestamp time.Time
}

// ParsePayload coerces a message payload into *T. Payloads arrive
// either as the original Go value (in-process enqueue) or as decoded
// JSON (after a Redis round trip), so both shapes are accepted.
func ParsePayload[T any](payload interface{}) (*T, error) {
	if p, ok := payload.(*T); ok {
		return p, nil
	}
	if p, ok := payload.(T); ok {
		return &p, nil
	}

	var raw []byte
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}
