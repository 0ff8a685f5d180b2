package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/novatechnologies/stocks/api/http"
	"bitbucket.org/novatechnologies/stocks/domain"
	"bitbucket.org/novatechnologies/stocks/infra"
	"bitbucket.org/novatechnologies/stocks/infra/broker"
	"bitbucket.org/novatechnologies/stocks/infra/centrifuge"
	"bitbucket.org/novatechnologies/stocks/infra/logger"
	"bitbucket.org/novatechnologies/stocks/stock"
)

func main() {
	configPath := flag.String("config", "./config/.env", "path to the env file")
	flag.Parse()

	conf, err := infra.SetConfig(*configPath)
	if err != nil {
		log.Fatal("can't load config: " + err.Error())
	}
	if err := logger.Setup(conf.LogConfig.Level, conf.LogConfig.Format); err != nil {
		log.Fatal("can't setup logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, conf infra.Config) error {
	stocksConf := conf.StocksConfig

	registry, err := domain.NewRegistry(
		domain.DefaultTickers(stocksConf.Prefix, stocksConf.Count),
		stocksConf.InitialPrice,
	)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)

	eventsBroker := broker.NewInMemory().WithLogger(logger.DefaultLogger.WithField("component", "events"))
	if centrifugeConf := conf.CentrifugeConfig; centrifugeConf.Host != "" {
		broadcaster := centrifuge.NewBroadcaster(
			centrifuge.New(centrifugeConf),
			eventsBroker,
			registry.Tickers(),
		)
		broadcaster.SubscribeForPrices()
		group.Go(func() error {
			broadcaster.Run(ctx, centrifugeConf.BatchSize, centrifugeConf.BatchWait)
			return nil
		})
	}

	// the service and in-flight requests are stopped explicitly below, not by the signal
	baseCtx := context.WithoutCancel(ctx)
	stockService := stock.NewService(
		baseCtx,
		registry,
		stock.NewRandomWalk(stocksConf.MinDelay, stocksConf.MaxDelay, stocksConf.MaxDelta),
		stock.Options{
			WaitTimeout: stocksConf.WaitTimeout,
			Events:      eventsBroker,
		},
	)

	server := http.NewServer(stockService, conf.HttpConfig.Port, stocksConf.PopularLimit)
	serverErr := server.Start(baseCtx)

	group.Go(func() error {
		return <-serverErr
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		// interrupt computations first so waiting requests can finish
		stockService.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.HttpConfig.ShutdownTimeout)
		defer cancel()
		return server.Stop(shutdownCtx)
	})

	return group.Wait()
}
