package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler consumes raw payloads from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	AutoOffsetReset string
	WorkerCount     int
	BufferSize      int
	RetryMax        int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	DLQTopic        string
	MinBytes        int
	MaxBytes        int
}

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) { c.GroupID = groupID }
}

// WithConsumerAutoOffsetReset picks where a new group starts reading:
// "earliest" or "latest".
func WithConsumerAutoOffsetReset(reset string) ConsumerOption {
	return func(c *ConsumerConfig) { c.AutoOffsetReset = reset }
}

func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ routes messages that exhaust their retries to a
// dead-letter topic instead of blocking the partition.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// inbound is one fetched message on its way to a worker lane.
type inbound struct {
	topic string
	km    kafka.Message
}

// messageReader is the slice of *kafka.Reader the consumer depends
// on: uncommitted fetches plus explicit commits.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads registered topics and dispatches messages to a fixed
// set of worker lanes. A message lands on lane partition%workers, so
// every partition is handled by exactly one lane and transaction
// batches keyed by account stay in order without extra locking.
type Consumer struct {
	cfg      *ConsumerConfig
	handlers map[string]MessageHandler
	readers  map[string]messageReader
	lanes    []chan inbound

	ctx      context.Context
	cancel   context.CancelFunc
	fetchWg  sync.WaitGroup
	laneWg   sync.WaitGroup
	stopOnce sync.Once

	dlq  *kafka.Writer
	hook ConsumerHook
}

// NewConsumer creates a consumer. Handlers are registered afterwards,
// before Start.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:         "default",
		AutoOffsetReset: "earliest",
		WorkerCount:     1,
		BufferSize:      10,
		RetryMax:        3,
		BackoffMin:      50 * time.Millisecond,
		BackoffMax:      2 * time.Second,
		MinBytes:        10e3,
		MaxBytes:        10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]messageReader),
		ctx:      ctx,
		cancel:   cancel,
		hook:     NoopHook{},
	}
	registerConsumerMetrics()

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

// WithConsumerHook sets lifecycle hooks around message handling.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler binds a handler to its topic. Last registration for
// a topic wins a warning, not the topic.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, dup := c.handlers[topic]; dup {
		log.Printf("warn: handler already registered for topic %s", topic)
		return
	}
	c.handlers[topic] = handler
}

// Start opens a reader per registered topic and spins up the lanes.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	startOffset := kafka.FirstOffset
	if c.cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	c.lanes = make([]chan inbound, c.cfg.WorkerCount)
	for i := range c.lanes {
		c.lanes[i] = make(chan inbound, c.cfg.BufferSize)
		c.laneWg.Add(1)
		go c.runLane(c.lanes[i])
	}

	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
			StartOffset: startOffset,
		})
		c.readers[topic] = r
		c.fetchWg.Add(1)
		go c.fetchLoop(topic, r)
	}

	log.Printf("kafka consumer: started topics=%d workers=%d", len(c.readers), c.cfg.WorkerCount)
	return nil
}

// Stop drains the consumer. Safe to call more than once.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		c.cancel()

		// Readers unblock on cancel. Lanes close only after every
		// fetch loop has exited, so nothing sends on a closed lane.
		for topic, r := range c.readers {
			if err := r.Close(); err != nil {
				log.Printf("kafka consumer: close reader %s: %v", topic, err)
			}
		}
		c.fetchWg.Wait()
		for _, lane := range c.lanes {
			close(lane)
		}

		done := make(chan struct{})
		go func() {
			c.laneWg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = fmt.Errorf("consumer stop: %w", ctx.Err())
		}

		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				log.Printf("kafka consumer: close dlq writer: %v", err)
			}
		}
	})
	return stopErr
}

// fetchLoop reads one topic and routes each message to its lane.
func (c *Consumer) fetchLoop(topic string, r messageReader) {
	defer c.fetchWg.Done()

	for {
		// FetchMessage leaves the offset uncommitted; process commits
		// explicitly after handling (or DLQ) so a crash mid-handle
		// redelivers instead of losing the message.
		km, err := r.FetchMessage(c.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.EOF) {
				return
			}
			log.Printf("kafka consumer: read %s: %v", topic, err)
			continue
		}

		lane := c.lanes[km.Partition%len(c.lanes)]
		select {
		case lane <- inbound{topic: topic, km: km}:
			laneDepth.WithLabelValues(topic).Set(float64(len(lane)))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) runLane(lane chan inbound) {
	defer c.laneWg.Done()
	for in := range lane {
		c.process(in)
	}
}

// process runs one message through the hook/retry/DLQ/commit cycle.
func (c *Consumer) process(in inbound) {
	handler := c.handlers[in.topic]
	if handler == nil {
		return
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("kafka consumer: panic handling %s: %v", in.topic, r)
		}
		handleLatency.WithLabelValues(in.topic).Observe(time.Since(start).Seconds())
	}()

	var err error
	for attempt := 1; ; attempt++ {
		hctx, hkm, data, berr := c.hook.BeforeHandle(c.ctx, in.topic, in.km, in.km.Value)
		if berr != nil {
			err = berr
			break
		}
		err = handler.Handle(hctx, data)
		c.hook.AfterHandle(hctx, in.topic, hkm, data, err)
		if err == nil || attempt > c.cfg.RetryMax {
			break
		}
		c.hook.OnError(hctx, in.topic, hkm, data, err)
		select {
		case <-time.After(jitteredBackoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.ctx.Done():
			return
		}
	}

	if err != nil {
		c.hook.OnError(c.ctx, in.topic, in.km, in.km.Value, err)
		log.Printf("kafka consumer: giving up on %s message: %v", in.topic, err)
		if !c.sendToDLQ(in) {
			// No DLQ: leave the offset uncommitted so the message is
			// redelivered rather than silently lost.
			return
		}
	}
	c.commit(in)
}

func (c *Consumer) sendToDLQ(in inbound) bool {
	if c.dlq == nil {
		return false
	}
	werr := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Key:     in.km.Key,
		Value:   in.km.Value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(in.topic)}},
	})
	if werr != nil {
		log.Printf("kafka consumer: dlq write %s: %v", c.cfg.DLQTopic, werr)
		return false
	}
	return true
}

func (c *Consumer) commit(in inbound) {
	r := c.readers[in.topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, in.km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(jitteredBackoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	log.Printf("kafka consumer: commit %s: %v", in.topic, err)
}

// jitteredBackoff grows exponentially from min, caps at max, and
// subtracts up to half the interval so retries across lanes spread out.
func jitteredBackoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := min << uint(attempt-1)
	if d > max || d < min {
		d = max
	}
	return d - time.Duration(rand.Int63n(int64(d)/2))
}

var (
	laneDepth     *prometheus.GaugeVec
	handleLatency *prometheus.HistogramVec
	consumerOnce  sync.Once
)

func registerConsumerMetrics() {
	consumerOnce.Do(func() {
		laneDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "spendlens_kafka_consumer_lane_depth", Help: "Messages waiting in a worker lane"},
			[]string{"topic"},
		)
		handleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "spendlens_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
