// Package async provides a transport with a bounded queue and a fixed worker
// pool. Sends are queued and delivered in the background; the oldest queued
// send is dropped when the queue is full.
package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/strongdm/raven/pkg/raven"
)

// ErrDropped is reported to a send's OnFailure when it is evicted from a
// full queue.
var ErrDropped = errors.New("send dropped: queue full")

// Option configures the async transport.
type Option func(*config)

type config struct {
	queueSize int
	workers   int
	onDropped func(count int)
}

// WithQueueSize sets the maximum number of queued sends (default: 1000).
func WithQueueSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithWorkers sets how many deliveries run concurrently (default: 2).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithOnDropped sets a callback invoked when sends are dropped due to queue
// overflow.
func WithOnDropped(fn func(count int)) Option {
	return func(c *config) {
		c.onDropped = fn
	}
}

type job struct {
	ctx     context.Context
	req     *raven.Request
	handler raven.ResponseHandler
}

// transport delivers queued sends on a worker pool.
type transport struct {
	deliverer raven.Deliverer
	queue     chan job
	group     errgroup.Group
	pending   atomic.Int64
	closeOnce sync.Once
	closeMu   sync.RWMutex
	closed    bool
	onDropped func(count int)
}

// New wraps a deliverer with a bounded queue for asynchronous sends.
// Send returns immediately; when the queue is full the oldest send is
// dropped and its handler's OnFailure receives ErrDropped.
func New(d raven.Deliverer, opts ...Option) raven.Transport {
	cfg := &config{
		queueSize: 1000,
		workers:   2,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &transport{
		deliverer: d,
		queue:     make(chan job, cfg.queueSize),
		onDropped: cfg.onDropped,
	}
	for range cfg.workers {
		t.group.Go(t.work)
	}
	return t
}

// work delivers queued sends until the queue is closed.
func (t *transport) work() error {
	for j := range t.queue {
		j.handler.Complete(t.deliverer.Deliver(j.ctx, j.req))
		t.pending.Add(-1)
	}
	return nil
}

// Send enqueues the request. It never blocks.
func (t *transport) Send(ctx context.Context, req *raven.Request, handler raven.ResponseHandler) {
	if err := req.Validate(); err != nil {
		handler.Complete(nil, err)
		return
	}

	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		handler.Complete(nil, raven.ErrTransportClosed)
		return
	}

	j := job{ctx: context.WithoutCancel(ctx), req: req, handler: handler}
	t.pending.Add(1)
	select {
	case t.queue <- j:
	default:
		t.dropOldestAndEnqueue(j)
	}
}

// dropOldestAndEnqueue evicts the oldest queued send to make room for j.
func (t *transport) dropOldestAndEnqueue(j job) {
	select {
	case old := <-t.queue:
		t.drop(old)
	default:
		// Queue was emptied by a worker, try again
	}

	select {
	case t.queue <- j:
	default:
		// Still full, drop the new send
		t.drop(j)
	}
}

func (t *transport) drop(j job) {
	j.handler.Complete(nil, ErrDropped)
	t.pending.Add(-1)
	if t.onDropped != nil {
		t.onDropped(1)
	}
}

// Flush blocks until every queued send has been delivered or ctx ends.
func (t *transport) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for t.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close stops accepting sends, delivers what is queued and stops the workers.
func (t *transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.closeMu.Lock()
		t.closed = true
		t.closeMu.Unlock()

		close(t.queue)
		err = t.group.Wait()
	})
	return err
}
