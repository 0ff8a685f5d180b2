package stock

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"bitbucket.org/novatechnologies/stocks/infra/logger"
)

// PriceGenerator produces the next price of a ticker. It may be slow and
// must return a strictly positive price.
type PriceGenerator interface {
	Generate(ctx context.Context, ticker string, currentPrice int64) (int64, error)
}

// PriceGeneratorFunc adapts a function to PriceGenerator.
type PriceGeneratorFunc func(ctx context.Context, ticker string, currentPrice int64) (int64, error)

func (f PriceGeneratorFunc) Generate(ctx context.Context, ticker string, currentPrice int64) (int64, error) {
	return f(ctx, ticker, currentPrice)
}

const (
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = time.Second
	DefaultMaxDelta = int64(100)
)

// RandomWalk simulates an expensive pricing model: it sleeps for a random
// delay and moves the price by a random delta in [-MaxDelta, MaxDelta].
type RandomWalk struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	MaxDelta int64

	mu   sync.Mutex
	intn func(n int) int
}

func NewRandomWalk(minDelay, maxDelay time.Duration, maxDelta int64) *RandomWalk {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &RandomWalk{
		MinDelay: minDelay,
		MaxDelay: maxDelay,
		MaxDelta: maxDelta,
		intn:     rnd.Intn,
	}
}

func (g *RandomWalk) random(n int) int {
	if n <= 0 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.intn(n)
}

func (g *RandomWalk) Generate(ctx context.Context, ticker string, currentPrice int64) (int64, error) {
	log := logger.FromContext(ctx).WithField("ticker", ticker)

	delay := g.MinDelay + time.Duration(g.random(int(g.MaxDelay-g.MinDelay)+1))
	log.WithField("delay", delay).Info("generating price")
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			log.Warn("price generation interrupted")
			return 0, ctx.Err()
		case <-timer.C:
		}
	}

	delta := int64(g.random(int(2*g.MaxDelta)+1)) - g.MaxDelta
	next := currentPrice + delta
	if next <= 0 {
		log.WithField("currentPrice", currentPrice).
			WithField("delta", delta).
			Warn("calculated non-positive price, applying safeguard")
		next = currentPrice + abs(delta) + 1
		if next < 1 {
			next = 1
		}
	}

	log.WithField("price", next).Info("generated new price")
	return next, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
