package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func touched(ticker string, times int) *Instrument {
	instrument := NewInstrument(ticker, 1000)
	for i := 0; i < times; i++ {
		instrument.Touch()
	}
	return instrument
}

func TestTopPopular(t *testing.T) {
	instruments := []*Instrument{
		touched("stock-1", 1),
		touched("stock-2", 4),
		touched("stock-10", 1),
		touched("stock-3", 0),
		touched("stock-5", 7),
	}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{name: "top 3", n: 3, want: []string{"stock-5", "stock-2", "stock-1"}},
		{name: "ties by ticker", n: 4, want: []string{"stock-5", "stock-2", "stock-1", "stock-10"}},
		{name: "more than available", n: 10, want: []string{"stock-5", "stock-2", "stock-1", "stock-10", "stock-3"}},
		{name: "zero", n: 0, want: []string{}},
		{name: "negative", n: -1, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TopPopular(instruments, tt.n))
		})
	}
}

func TestTopPopular_noLookups(t *testing.T) {
	instruments := []*Instrument{touched("stock-2", 0), touched("stock-1", 0)}
	assert.Equal(t, []string{"stock-1", "stock-2"}, TopPopular(instruments, 3))
	assert.Equal(t, []string{}, TopPopular(nil, 3))
}
