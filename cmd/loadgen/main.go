package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/novatechnologies/stocks/client/stocks"
	"bitbucket.org/novatechnologies/stocks/domain"
)

// loadgen drives the stocks API with concurrent workers to make coalescing
// visible: many lookups of few tickers in the same second.
func main() {
	serverURL := flag.String("url", "http://localhost:8080", "stocks API base url")
	workers := flag.Int("workers", 16, "concurrent workers")
	requests := flag.Int("requests", 50, "requests per worker")
	tickers := flag.Int("tickers", domain.DefaultTickersCount, "number of tickers to query")
	sumEvery := flag.Int("sum-every", 10, "every n-th request of a worker asks for the sum")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	cli, err := stocks.New(stocks.Config{
		ServerURL:     *serverURL,
		Timeout:       pointer.ToDuration(*timeout),
		RetryCount:    pointer.ToInt(2),
		RetryWaitTime: pointer.ToDuration(100 * time.Millisecond),
	})
	if err != nil {
		log.Fatal("can't stocks.New: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	names := domain.DefaultTickers(domain.DefaultTickerPrefix, *tickers)
	var prices, sums, failures atomic.Int64
	started := time.Now()

	group, ctx := errgroup.WithContext(ctx)
	for w := 0; w < *workers; w++ {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)))
		group.Go(func() error {
			for i := 1; i <= *requests; i++ {
				if ctx.Err() != nil {
					return nil
				}
				if *sumEvery > 0 && i%*sumEvery == 0 {
					if _, err := cli.Sum(ctx); err != nil {
						failures.Add(1)
						log.WithError(err).Warn("sum failed")
						continue
					}
					sums.Add(1)
					continue
				}
				ticker := names[rnd.Intn(len(names))]
				if _, err := cli.GetPrice(ctx, ticker); err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						return err
					}
					failures.Add(1)
					log.WithError(err).WithField("ticker", ticker).Warn("price failed")
					continue
				}
				prices.Add(1)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}

	popular, err := cli.Popular(context.Background())
	if err != nil {
		log.Fatal("can't get popular stocks: " + err.Error())
	}
	log.WithFields(log.Fields{
		"prices":   prices.Load(),
		"sums":     sums.Load(),
		"failures": failures.Load(),
		"duration": time.Since(started).Round(time.Millisecond),
		"popular":  popular,
	}).Info("load finished")
}
