package usecase

import (
	"context"

	"SpendLens/internal/domain/models"
	drepo "SpendLens/internal/domain/repository"
	mid "SpendLens/internal/middleware"
)

// FeedCollector pulls transactions from the live feed and hands them
// to the ingest pipeline.
type FeedCollector struct {
	stream  drepo.TransactionStream
	proc    *IngestProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

// NewFeedCollector creates a new FeedCollector instance.
func NewFeedCollector(stream drepo.TransactionStream, proc *IngestProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *FeedCollector {
	return &FeedCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the feed stream is connected.
func (c *FeedCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *FeedCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	txCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, txCh, errCh)
	return nil
}

func (c *FeedCollector) consume(ctx context.Context, txCh <-chan *models.Transaction, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			// The stream closes both channels after its one error;
			// the old channels are dead either way, so a new Read is
			// needed after reconnecting.
			if err != nil {
				c.metrics.RecordError("stream")
			} else if ok {
				continue
			}
			if txCh, errCh = c.reopen(ctx); txCh == nil {
				return
			}
		case t, ok := <-txCh:
			if !ok {
				if txCh, errCh = c.reopen(ctx); txCh == nil {
					return
				}
				continue
			}
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.proc.Process(ctx, "feed", t)
			}
		}
	}
}

// reopen reconnects until it succeeds or ctx ends, then starts a fresh
// read. Reconnect waits out the backoff delay between attempts.
func (c *FeedCollector) reopen(ctx context.Context) (<-chan *models.Transaction, <-chan error) {
	for ctx.Err() == nil {
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream")
			continue
		}
		return c.stream.Read(ctx)
	}
	return nil, nil
}

func (c *FeedCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying IngestProcessor for lifecycle management.
func (c *FeedCollector) Processor() *IngestProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *FeedCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
