package domain

import (
	"context"
	"time"
)

// Microbatching groups price updates into batches of up to maxBatchSize.
// A batch is flushed early when no update arrives within maxWait.
func Microbatching(ctx context.Context, updates <-chan PriceUpdate, maxBatchSize int, maxWait time.Duration) chan []PriceUpdate {
	batchStream := make(chan []PriceUpdate)
	go func() {
		defer close(batchStream)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				batch := []PriceUpdate{update}
				timer := time.NewTimer(maxWait)
			loop:
				for len(batch) < maxBatchSize {
					select {
					case <-ctx.Done():
						timer.Stop()
						return
					case update, ok := <-updates:
						if !ok {
							break loop
						}
						batch = append(batch, update)
					case <-timer.C:
						break loop
					}
				}
				timer.Stop()
				select {
				case <-ctx.Done():
					return
				case batchStream <- latestPerTicker(batch):
				}
			}
		}
	}()
	return batchStream
}

// latestPerTicker keeps only the freshest update of each ticker, in the order
// tickers first appear in the batch.
func latestPerTicker(batch []PriceUpdate) []PriceUpdate {
	index := make(map[string]int, len(batch))
	out := make([]PriceUpdate, 0, len(batch))
	for _, update := range batch {
		i, ok := index[update.Ticker]
		if !ok {
			index[update.Ticker] = len(out)
			out = append(out, update)
			continue
		}
		if update.Second >= out[i].Second {
			out[i] = update
		}
	}
	return out
}
