package domain

import "sort"

// TopPopular orders instruments by popularity, most requested first, and
// returns up to n tickers. Equal counts are ordered by ticker.
func TopPopular(instruments []*Instrument, n int) []string {
	if n <= 0 {
		return []string{}
	}

	type entry struct {
		ticker     string
		popularity int64
	}
	entries := make([]entry, 0, len(instruments))
	for _, instrument := range instruments {
		entries = append(entries, entry{instrument.Ticker(), instrument.Popularity()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].popularity != entries[j].popularity {
			return entries[i].popularity > entries[j].popularity
		}
		return entries[i].ticker < entries[j].ticker
	})

	if n > len(entries) {
		n = len(entries)
	}
	top := make([]string, 0, n)
	for _, e := range entries[:n] {
		top = append(top, e.ticker)
	}
	return top
}
