package stock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"bitbucket.org/novatechnologies/stocks/domain"
	"bitbucket.org/novatechnologies/stocks/infra/logger"
)

// Key identifies one computation: a ticker priced for one second.
type Key struct {
	Ticker string
	Bucket int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Ticker, k.Bucket)
}

// ComputeFunc is the expensive work behind a Key. The context is cancelled
// when the coalescer is closed.
type ComputeFunc func(ctx context.Context) (int64, error)

// call is the result slot shared by every waiter of one Key. price and err
// are written once, before done is closed.
type call struct {
	done  chan struct{}
	price int64
	err   error
}

func (c *call) resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Coalescer runs at most one ComputeFunc per Key at a time and hands its
// result to every caller that asked for the same Key meanwhile.
type Coalescer struct {
	ctx    context.Context
	cancel context.CancelFunc

	inflight sync.Map // Key -> *call
	pending  atomic.Int64
}

func NewCoalescer(ctx context.Context) *Coalescer {
	ctx, cancel := context.WithCancel(ctx)
	return &Coalescer{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Do joins the computation for key, starting it with fn if none is in flight,
// and waits for its result.
func (c *Coalescer) Do(ctx context.Context, key Key, fn ComputeFunc) (int64, error) {
	return c.wait(ctx, key, c.getOrStart(ctx, key, fn))
}

func (c *Coalescer) getOrStart(ctx context.Context, key Key, fn ComputeFunc) *call {
	if existing, ok := c.inflight.Load(key); ok {
		CoalescedWaits.Inc()
		return existing.(*call)
	}

	cl := &call{done: make(chan struct{})}
	if c.ctx.Err() != nil {
		cl.err = errors.WithMessage(domain.ErrCancelled, "coalescer is closed")
		close(cl.done)
		return cl
	}

	actual, loaded := c.inflight.LoadOrStore(key, cl)
	if loaded {
		CoalescedWaits.Inc()
		return actual.(*call)
	}

	logger.FromContext(ctx).WithField("key", key.String()).Debug("starting computation")
	c.pending.Add(1)
	go c.run(key, cl, fn)
	return cl
}

func (c *Coalescer) run(key Key, cl *call, fn ComputeFunc) {
	defer c.pending.Add(-1)
	// The key leaves the index only after the slot is resolved, so a caller
	// arriving in between still finds the finished result for the same key.
	defer c.inflight.Delete(key)
	defer close(cl.done)
	defer func() {
		if r := recover(); r != nil {
			cl.price = 0
			cl.err = &domain.ComputationError{
				Ticker: key.Ticker,
				Bucket: key.Bucket,
				Err:    errors.Errorf("panic: %v", r),
			}
			ComputationsFailed.WithLabelValues(key.Ticker).Inc()
		}
	}()

	ComputationsStarted.WithLabelValues(key.Ticker).Inc()
	started := time.Now()
	price, err := fn(c.ctx)
	ComputationLatency.Observe(time.Since(started).Seconds())

	switch {
	case err == nil:
		cl.price = price
	case c.ctx.Err() != nil || errors.Is(err, context.Canceled):
		cl.err = errors.WithMessagef(domain.ErrCancelled, "computation %s interrupted: %v", key, err)
	default:
		ComputationsFailed.WithLabelValues(key.Ticker).Inc()
		cl.err = &domain.ComputationError{Ticker: key.Ticker, Bucket: key.Bucket, Err: err}
	}
}

func (c *Coalescer) wait(ctx context.Context, key Key, cl *call) (int64, error) {
	if cl.resolved() {
		return cl.price, cl.err
	}

	select {
	case <-cl.done:
		return cl.price, cl.err
	case <-ctx.Done():
		return 0, errors.WithMessagef(domain.ErrCancelled, "waiting for %s: %v", key, ctx.Err())
	case <-c.ctx.Done():
		// the computation may have just finished as well
		if cl.resolved() {
			return cl.price, cl.err
		}
		return 0, errors.WithMessagef(domain.ErrCancelled, "waiting for %s: coalescer is closed", key)
	}
}

// Pending returns the number of computations currently running.
func (c *Coalescer) Pending() int {
	return int(c.pending.Load())
}

// Close interrupts running computations. Callers still waiting receive
// domain.ErrCancelled.
func (c *Coalescer) Close() {
	c.cancel()
}
