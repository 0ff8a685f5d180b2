package stock

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/novatechnologies/stocks/domain"
	"bitbucket.org/novatechnologies/stocks/infra/logger"
)

type Options struct {
	// Now returns the wall clock. The bucket of a read is Now truncated to the second.
	Now func() time.Time
	// WaitTimeout bounds how long a read waits for computations, 0 means no bound.
	WaitTimeout time.Duration
	// Events receives a domain.EvTypePriceUpdated event for every stored price.
	Events domain.EventsBroker
}

// Service answers price reads over the registry. Single ticker reads and the
// snapshot sum share one Coalescer, so they never compute the same
// ticker and second twice.
type Service struct {
	registry  *domain.Registry
	generator PriceGenerator
	coalescer *Coalescer

	now         func() time.Time
	waitTimeout time.Duration
	events      domain.EventsBroker
}

func NewService(
	ctx context.Context,
	registry *domain.Registry,
	generator PriceGenerator,
	opts Options,
) *Service {
	s := &Service{
		registry:    registry,
		generator:   generator,
		coalescer:   NewCoalescer(ctx),
		now:         opts.Now,
		waitTimeout: opts.WaitTimeout,
		events:      opts.Events,
	}
	if s.now == nil {
		s.now = time.Now
	}
	logger.FromContext(ctx).WithField("tickers", registry.Len()).Info("stock service initialized")
	return s
}

func (s *Service) currentBucket() int64 {
	return s.now().Unix()
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.waitTimeout > 0 {
		return context.WithTimeout(ctx, s.waitTimeout)
	}
	return context.WithCancel(ctx)
}

// GetPrice returns the price of ticker for the current second and counts the
// lookup towards the ticker's popularity.
func (s *Service) GetPrice(ctx context.Context, ticker string) (domain.Quote, error) {
	log := logger.FromContext(ctx).WithField("ticker", ticker)

	instrument, err := s.registry.Get(ticker)
	if err != nil {
		log.Warn("attempted to get price for non-existent ticker")
		return domain.Quote{}, err
	}

	bucket := s.currentBucket()
	instrument.Touch()

	if price, ok := instrument.Cached(bucket); ok {
		CacheHits.WithLabelValues("price").Inc()
		log.WithField("price", price).Debug("cache hit")
		return domain.Quote{Ticker: ticker, Price: price}, nil
	}

	log.WithField("second", bucket).Debug("cache miss")
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	price, err := s.coalescer.Do(ctx, Key{ticker, bucket}, s.compute(instrument, bucket))
	if err != nil {
		log.WithError(err).Error("can't get price")
		return domain.Quote{}, err
	}
	return domain.Quote{Ticker: ticker, Price: price}, nil
}

// SumAtCurrentBucket sums the prices of every ticker, all taken for the same
// second. Fresh cached prices are reused, stale ones are computed in parallel.
// Popularity is not affected.
func (s *Service) SumAtCurrentBucket(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx)
	bucket := s.currentBucket()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	instruments := s.registry.Instruments()
	prices := make([]int64, len(instruments))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, instrument := range instruments {
		if price, ok := instrument.Cached(bucket); ok {
			CacheHits.WithLabelValues("sum").Inc()
			prices[i] = price
			continue
		}

		i, instrument := i, instrument
		group.Go(func() error {
			price, err := s.coalescer.Do(
				groupCtx,
				Key{instrument.Ticker(), bucket},
				s.compute(instrument, bucket),
			)
			if err != nil {
				return err
			}
			prices[i] = price
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		log.WithError(err).WithField("second", bucket).Error("can't sum prices")
		return 0, err
	}

	var sum int64
	for _, price := range prices {
		sum += price
	}
	log.WithField("second", bucket).WithField("sum", sum).Info("sum of all stocks calculated")
	return sum, nil
}

// TopPopular returns up to n tickers ordered by lookups, most popular first.
func (s *Service) TopPopular(n int) []string {
	return domain.TopPopular(s.registry.Instruments(), n)
}

func (s *Service) Tickers() []string {
	return s.registry.Tickers()
}

func (s *Service) States() map[string]domain.InstrumentState {
	return s.registry.States()
}

// Pending returns the number of computations in flight.
func (s *Service) Pending() int {
	return s.coalescer.Pending()
}

// Close interrupts computations in flight; their waiters get domain.ErrCancelled.
func (s *Service) Close() {
	s.coalescer.Close()
}

// compute builds the work for one ticker and second. The generator sees the
// price known when the work starts; its result is stored only if no fresher
// second was stored meanwhile, but it is always returned to the waiters.
func (s *Service) compute(instrument *domain.Instrument, bucket int64) ComputeFunc {
	return func(ctx context.Context) (int64, error) {
		ticker := instrument.Ticker()
		log := logger.FromContext(ctx).WithField("ticker", ticker).WithField("second", bucket)

		// an earlier computation for the same second may have finished after the caller's cache check
		if price, ok := instrument.Cached(bucket); ok {
			log.WithField("price", price).Debug("already computed for this second")
			return price, nil
		}

		price, err := s.generator.Generate(ctx, ticker, instrument.Price())
		if err != nil {
			return 0, err
		}
		if price <= 0 {
			log.WithField("price", price).Error("generator broke its contract")
			return 0, errors.Wrapf(domain.ErrNonPositivePrice, "got %d", price)
		}

		if !instrument.Merge(price, bucket) {
			log.WithField("price", price).Info("fresher price already stored, keeping it")
			return price, nil
		}

		log.WithField("price", price).Info("calculation finished")
		if s.events != nil {
			s.events.Publish(
				domain.EvTypePriceUpdated,
				domain.NewEvent(ctx, domain.PriceUpdate{Ticker: ticker, Price: price, Second: bucket}),
			)
		}
		return price, nil
	}
}
