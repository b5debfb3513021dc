package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/searchlab/termindex/pkg/kafka"
	"github.com/searchlab/termindex/pkg/logger"
)

// Publisher writes a batch of events to the event stream.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector receives search events without blocking the request path. Every
// event is recorded in the Aggregator; when a Publisher is set, events are
// also published in batches of batchSize or every flushInterval.
type Collector struct {
	publisher     Publisher
	aggregator    *Aggregator
	eventCh       chan SearchEvent
	batchSize     int
	flushInterval time.Duration
	buffer        []kafka.Event
	logger        *slog.Logger
	done          chan struct{}

	mu     sync.RWMutex
	closed bool
}

type CollectorOption func(*Collector)

// WithPublisher enables publishing to the event stream.
func WithPublisher(p Publisher) CollectorOption {
	return func(c *Collector) { c.publisher = p }
}

func WithBatching(size int, interval time.Duration) CollectorOption {
	return func(c *Collector) {
		if size > 0 {
			c.batchSize = size
		}
		if interval > 0 {
			c.flushInterval = interval
		}
	}
}

func NewCollector(aggregator *Aggregator, bufferSize int, opts ...CollectorOption) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	c := &Collector{
		aggregator:    aggregator,
		eventCh:       make(chan SearchEvent, bufferSize),
		batchSize:     100,
		flushInterval: 5 * time.Second,
		logger:        logger.WithComponent("analytics-collector"),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.buffer = make([]kafka.Event, 0, c.batchSize)
	return c
}

func (c *Collector) Aggregator() *Aggregator {
	return c.aggregator
}

// Start runs the collection loop until ctx is cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.finalFlush()
					return
				}
				c.handle(ctx, event)
			case <-ticker.C:
				c.flush(ctx)
			case <-ctx.Done():
				c.drainRemaining()
				c.finalFlush()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"publishing", c.publisher != nil,
		"batch_size", c.batchSize,
	)
}

// Track queues event. It drops the event when the buffer is full or the
// collector has been closed.
func (c *Collector) Track(event SearchEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops the loop after the queued events have been handled. Calling it
// more than once is a no-op.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) handle(ctx context.Context, event SearchEvent) {
	c.aggregator.Record(event)
	if c.publisher == nil {
		return
	}
	c.buffer = append(c.buffer, kafka.Event{Key: event.Mode, Value: event})
	if len(c.buffer) >= c.batchSize {
		c.flush(ctx)
	}
}

func (c *Collector) flush(ctx context.Context) {
	if c.publisher == nil || len(c.buffer) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(ctx, c.buffer); err != nil {
		c.logger.Error("failed to publish analytics batch", "count", len(c.buffer), "error", err)
	}
	c.buffer = c.buffer[:0]
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.handle(context.Background(), event)
		default:
			return
		}
	}
}

func (c *Collector) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx)
}
