// Package quote provides the daily-quote source the snapshot generator
// derives broker activity from.
package quote

import "context"

// Daily is the last trading day's quote for one symbol. Prices are in
// whole rupiah, matching the exchange's integer tick sizes.
type Daily struct {
	Close     int64
	PrevClose int64
	Volume    int64
}

// Source is the one-shot daily-quote contract. Implementations perform a
// single request-response with no retry; the caller owns fallback
// behavior.
type Source interface {
	Daily(ctx context.Context, symbol string) (*Daily, error)
}

// StaticSource serves quotes from a fixed in-memory table, falling back to
// a default quote for unknown symbols. Used for offline runs and tests.
type StaticSource struct {
	quotes map[string]Daily
	def    Daily
}

// NewStaticSource creates a static source. A nil table is allowed; every
// lookup then returns the default quote (flat price, moderate volume).
func NewStaticSource(quotes map[string]Daily) *StaticSource {
	return &StaticSource{
		quotes: quotes,
		def:    Daily{Close: 5000, PrevClose: 5000, Volume: 10_000_000},
	}
}

// Daily returns the table entry for symbol, or the default quote.
func (s *StaticSource) Daily(_ context.Context, symbol string) (*Daily, error) {
	if d, ok := s.quotes[symbol]; ok {
		return &d, nil
	}
	d := s.def
	return &d, nil
}
