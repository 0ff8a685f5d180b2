package domain

import (
	"strconv"

	"github.com/pkg/errors"
)

const (
	DefaultTickerPrefix = "stock-"
	DefaultTickersCount = 10
	DefaultInitialPrice = int64(1000)
)

// Registry is the fixed set of instruments. It is filled once by NewRegistry
// and never written afterwards, so lookups take no lock.
type Registry struct {
	tickers     []string
	instruments map[string]*Instrument
}

func DefaultTickers(prefix string, count int) []string {
	tickers := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		tickers = append(tickers, prefix+strconv.Itoa(i))
	}
	return tickers
}

func NewRegistry(tickers []string, initialPrice int64) (*Registry, error) {
	if initialPrice <= 0 {
		return nil, errors.Errorf("initial price must be positive, got %d", initialPrice)
	}
	r := &Registry{
		tickers:     make([]string, 0, len(tickers)),
		instruments: make(map[string]*Instrument, len(tickers)),
	}
	for _, ticker := range tickers {
		if ticker == "" {
			return nil, errors.New("empty ticker")
		}
		if _, ok := r.instruments[ticker]; ok {
			return nil, errors.Errorf("duplicate ticker %s", ticker)
		}
		r.tickers = append(r.tickers, ticker)
		r.instruments[ticker] = NewInstrument(ticker, initialPrice)
	}
	return r, nil
}

func (r *Registry) Get(ticker string) (*Instrument, error) {
	instrument, ok := r.instruments[ticker]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, ticker)
	}
	return instrument, nil
}

// Tickers returns ids in creation order.
func (r *Registry) Tickers() []string {
	out := make([]string, len(r.tickers))
	copy(out, r.tickers)
	return out
}

func (r *Registry) Instruments() []*Instrument {
	out := make([]*Instrument, 0, len(r.tickers))
	for _, ticker := range r.tickers {
		out = append(out, r.instruments[ticker])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.tickers)
}

func (r *Registry) States() map[string]InstrumentState {
	states := make(map[string]InstrumentState, len(r.tickers))
	for ticker, instrument := range r.instruments {
		states[ticker] = instrument.State()
	}
	return states
}
