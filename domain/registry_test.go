package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTickers(t *testing.T) {
	assert.Equal(t, []string{"stock-1", "stock-2", "stock-3"}, DefaultTickers(DefaultTickerPrefix, 3))
	assert.Empty(t, DefaultTickers(DefaultTickerPrefix, 0))
}

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry(DefaultTickers(DefaultTickerPrefix, DefaultTickersCount), DefaultInitialPrice)
	require.NoError(t, err)
	assert.Equal(t, 10, registry.Len())

	tickers := registry.Tickers()
	assert.Equal(t, "stock-1", tickers[0])
	assert.Equal(t, "stock-10", tickers[9])
	tickers[0] = "changed"
	assert.Equal(t, "stock-1", registry.Tickers()[0])

	for ticker, state := range registry.States() {
		assert.Equal(t, InstrumentState{LastPrice: 1000}, state, ticker)
	}
}

func TestNewRegistry_invalid(t *testing.T) {
	tests := []struct {
		name    string
		tickers []string
		price   int64
	}{
		{name: "zero price", tickers: []string{"stock-1"}, price: 0},
		{name: "negative price", tickers: []string{"stock-1"}, price: -10},
		{name: "empty ticker", tickers: []string{"stock-1", ""}, price: 1000},
		{name: "duplicate", tickers: []string{"stock-1", "stock-1"}, price: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.tickers, tt.price)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_Get(t *testing.T) {
	registry, err := NewRegistry([]string{"stock-1"}, 1000)
	require.NoError(t, err)

	instrument, err := registry.Get("stock-1")
	require.NoError(t, err)
	assert.Equal(t, "stock-1", instrument.Ticker())

	_, err = registry.Get("stock-99")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "stock-99")
}

func TestInstrument_Merge(t *testing.T) {
	instrument := NewInstrument("stock-1", 1000)

	_, ok := instrument.Cached(1000)
	assert.False(t, ok)

	assert.True(t, instrument.Merge(1010, 1000))
	price, ok := instrument.Cached(1000)
	assert.True(t, ok)
	assert.Equal(t, int64(1010), price)

	assert.True(t, instrument.Merge(1020, 1001))
	assert.False(t, instrument.Merge(990, 1000), "older second must not overwrite")
	assert.Equal(t, int64(1020), instrument.Price())

	_, ok = instrument.Cached(1000)
	assert.False(t, ok)

	assert.True(t, instrument.Merge(1030, 1001), "same second may be rewritten")
	assert.Equal(t, InstrumentState{LastPrice: 1030, LastSecond: 1001}, instrument.State())
}

func TestInstrument_Touch(t *testing.T) {
	instrument := NewInstrument("stock-1", 1000)
	assert.Equal(t, int64(1), instrument.Touch())
	assert.Equal(t, int64(2), instrument.Touch())
	assert.Equal(t, int64(2), instrument.Popularity())
	assert.Equal(t, int64(2), instrument.State().Popularity)
}

func TestComputationError(t *testing.T) {
	var err error = &ComputationError{Ticker: "stock-1", Bucket: 1000, Err: ErrNonPositivePrice}

	assert.True(t, errors.Is(err, ErrComputationFailed))
	assert.True(t, errors.Is(err, ErrNonPositivePrice))
	assert.False(t, errors.Is(err, ErrCancelled))

	var computationErr *ComputationError
	require.True(t, errors.As(errors.Wrap(err, "sum"), &computationErr))
	assert.Equal(t, "stock-1", computationErr.Ticker)
}
