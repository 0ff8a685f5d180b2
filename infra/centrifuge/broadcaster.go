package centrifuge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"bitbucket.org/novatechnologies/stocks/domain"
	"bitbucket.org/novatechnologies/stocks/infra/logger"
)

const (
	PriceChannelPrefix = "stock_price"

	updatesBufferSize = 1024
)

// Broadcaster forwards price updates from the events broker to Centrifugo,
// one channel per ticker. Updates are queued by SubscribeForPrices and sent
// in batches by Run.
type Broadcaster struct {
	Centrifuge   Centrifuge
	Channels     map[string]string
	eventsBroker domain.EventsBroker
	updates      chan domain.PriceUpdate
}

func NewBroadcaster(publisher Centrifuge, eventsBroker domain.EventsBroker, tickers []string) *Broadcaster {
	return &Broadcaster{
		Centrifuge:   publisher,
		Channels:     GetPriceChannels(tickers),
		eventsBroker: eventsBroker,
		updates:      make(chan domain.PriceUpdate, updatesBufferSize),
	}
}

func (b *Broadcaster) SubscribeForPrices() {
	b.eventsBroker.Subscribe(
		domain.EvTypePriceUpdated, func(e *domain.Event) error {
			update := e.MustGetPriceUpdate()
			select {
			case b.updates <- update:
				return nil
			default:
				return errors.Errorf("updates queue is full, dropping %s price", update.Ticker)
			}
		},
	)
}

// Run publishes queued updates until ctx is done. A batch of one goes out as
// a plain publish, larger ones through a pipe.
func (b *Broadcaster) Run(ctx context.Context, maxBatchSize int, maxWait time.Duration) {
	log := logger.FromContext(ctx)
	for batch := range domain.Microbatching(ctx, b.updates, maxBatchSize, maxWait) {
		var err error
		if len(batch) == 1 {
			err = b.BroadcastPrice(ctx, batch[0])
		} else {
			err = b.BroadcastBatch(ctx, batch)
		}
		if err != nil {
			log.WithError(err).WithField("size", len(batch)).Error("can't broadcast prices")
		}
	}
	log.Info("price broadcasting stopped")
}

func (b *Broadcaster) BroadcastBatch(ctx context.Context, batch []domain.PriceUpdate) error {
	messages := make([]MessageData, 0, len(batch))
	for _, update := range batch {
		message, err := b.message(update)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("skipping price update")
			continue
		}
		messages = append(messages, message)
	}
	if len(messages) == 0 {
		return nil
	}
	logger.FromContext(ctx).
		WithField("size", len(messages)).
		Trace("[Broadcaster.BroadcastBatch] Push prices to Centrifugo.")
	return b.Centrifuge.BatchPublish(ctx, messages)
}

func (b *Broadcaster) BroadcastPrice(ctx context.Context, update domain.PriceUpdate) error {
	message, err := b.message(update)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).
		WithField("ticker", update.Ticker).
		WithField("price", update.Price).
		Trace("[Broadcaster.BroadcastPrice] Push price to Centrifugo.")
	return b.Centrifuge.Publish(ctx, message)
}

func (b *Broadcaster) message(update domain.PriceUpdate) (MessageData, error) {
	channel, ok := b.Channels[update.Ticker]
	if !ok {
		return MessageData{}, errors.Errorf("no channel for ticker %s", update.Ticker)
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return MessageData{}, errors.Wrap(err, "can't marshal price update")
	}
	return MessageData{Channel: channel, Data: string(payload)}, nil
}

func GetPriceChannels(tickers []string) map[string]string {
	c := make(map[string]string, len(tickers))
	for _, ticker := range tickers {
		c[ticker] = NewPriceChannel(ticker)
	}
	return c
}

func NewPriceChannel(ticker string) string {
	return fmt.Sprintf("%s_%s", PriceChannelPrefix, ticker)
}
