package kafka

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu      sync.Mutex
	commits []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	r.commits = append(r.commits, msgs...)
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committed() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Message(nil), r.commits...)
}

type stubHandler struct {
	topic string
	fn    func([]byte) error
}

func (h *stubHandler) Topic() string { return h.topic }

func (h *stubHandler) Handle(_ context.Context, b []byte) error { return h.fn(b) }

func newTestConsumer(t *testing.T, topic string, fn func([]byte) error) (*Consumer, *fakeReader) {
	t.Helper()
	registerConsumerMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := &fakeReader{}
	return &Consumer{
		cfg: &ConsumerConfig{
			RetryMax:   1,
			BackoffMin: time.Millisecond,
			BackoffMax: 2 * time.Millisecond,
		},
		handlers: map[string]MessageHandler{topic: &stubHandler{topic: topic, fn: fn}},
		readers:  map[string]messageReader{topic: r},
		ctx:      ctx,
		cancel:   cancel,
		hook:     NoopHook{},
	}, r
}

func TestProcessCommitsAfterSuccess(t *testing.T) {
	c, r := newTestConsumer(t, "transactions", func([]byte) error { return nil })

	msg := kafka.Message{Topic: "transactions", Partition: 2, Offset: 41, Value: []byte(`{}`)}
	c.process(inbound{topic: "transactions", km: msg})

	got := r.committed()
	if len(got) != 1 {
		t.Fatalf("expected 1 commit, got %d", len(got))
	}
	if got[0].Offset != 41 || got[0].Partition != 2 {
		t.Fatalf("committed wrong message: %+v", got[0])
	}
}

func TestProcessLeavesOffsetOnExhaustedRetriesWithoutDLQ(t *testing.T) {
	attempts := 0
	c, r := newTestConsumer(t, "transactions", func([]byte) error {
		attempts++
		return fmt.Errorf("boom")
	})

	msg := kafka.Message{Topic: "transactions", Offset: 7, Value: []byte(`{}`)}
	c.process(inbound{topic: "transactions", km: msg})

	// RetryMax=1 means one initial attempt plus one retry.
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if got := r.committed(); len(got) != 0 {
		t.Fatalf("offset must stay uncommitted for redelivery, committed %d", len(got))
	}
}
