package domain

import (
	"sync"
	"sync/atomic"
)

// Quote is the answer to a single ticker lookup.
type Quote struct {
	Ticker string `json:"ticker"`
	Price  int64  `json:"price"`
}

// InstrumentState is a point-in-time copy of an instrument used for diagnostics.
type InstrumentState struct {
	LastPrice  int64 `json:"lastPrice"`
	LastSecond int64 `json:"lastSecond"`
	Popularity int64 `json:"popularity"`
}

// PriceUpdate is the payload of EvTypePriceUpdated.
type PriceUpdate struct {
	Ticker string `json:"ticker"`
	Price  int64  `json:"price"`
	Second int64  `json:"second"`
}

// Instrument holds the mutable state of one ticker. Price and bucket are
// guarded by a lock of their own, so instruments never contend with each other.
type Instrument struct {
	ticker string

	mu         sync.RWMutex
	lastPrice  int64
	lastBucket int64

	popularity atomic.Int64
}

func NewInstrument(ticker string, initialPrice int64) *Instrument {
	return &Instrument{
		ticker:    ticker,
		lastPrice: initialPrice,
	}
}

func (i *Instrument) Ticker() string {
	return i.ticker
}

// Cached returns the stored price if it was computed for bucket.
func (i *Instrument) Cached(bucket int64) (int64, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.lastBucket != bucket {
		return 0, false
	}
	return i.lastPrice, true
}

// Price returns the last known price regardless of its bucket.
func (i *Instrument) Price() int64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastPrice
}

// Merge stores price for bucket unless a fresher bucket is already stored.
// It reports whether the instrument was updated.
func (i *Instrument) Merge(price, bucket int64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if bucket < i.lastBucket {
		return false
	}
	i.lastPrice = price
	i.lastBucket = bucket
	return true
}

// Touch records one lookup and returns the new popularity.
func (i *Instrument) Touch() int64 {
	return i.popularity.Add(1)
}

func (i *Instrument) Popularity() int64 {
	return i.popularity.Load()
}

func (i *Instrument) State() InstrumentState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return InstrumentState{
		LastPrice:  i.lastPrice,
		LastSecond: i.lastBucket,
		Popularity: i.popularity.Load(),
	}
}
