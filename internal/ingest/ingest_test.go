package ingest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quoteingest/internal/ingest"
	"quoteingest/internal/provider"
	"quoteingest/internal/store"
)

// fakeStore is an in-memory store.Store for exercising the run state machine.
type fakeStore struct {
	nextID          int64
	symbols         map[string]*store.Symbol
	quotes          map[int64]map[time.Time]string
	insertedSymbols int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		symbols: map[string]*store.Symbol{},
		quotes:  map[int64]map[time.Time]string{},
	}
}

func (f *fakeStore) seedSymbol(id int64, ticker, name string) {
	f.symbols[ticker] = &store.Symbol{ID: id, Ticker: ticker, Name: name}
	if id > f.nextID {
		f.nextID = id
	}
}

func (f *fakeStore) seedQuote(symbolID int64, ts time.Time, price string) {
	if f.quotes[symbolID] == nil {
		f.quotes[symbolID] = map[time.Time]string{}
	}
	f.quotes[symbolID][ts] = price
}

func (f *fakeStore) SymbolByTicker(_ context.Context, ticker string) (store.Symbol, error) {
	sym, ok := f.symbols[ticker]
	if !ok {
		return store.Symbol{}, store.ErrNotFound
	}
	return *sym, nil
}

func (f *fakeStore) InsertSymbol(_ context.Context, ticker, name string) (int64, error) {
	f.nextID++
	f.symbols[ticker] = &store.Symbol{ID: f.nextID, Ticker: ticker, Name: name}
	f.insertedSymbols++
	return f.nextID, nil
}

func (f *fakeStore) QuoteExists(_ context.Context, symbolID int64, ts time.Time) (bool, error) {
	_, ok := f.quotes[symbolID][ts]
	return ok, nil
}

func (f *fakeStore) InsertQuote(_ context.Context, symbolID int64, price string, ts time.Time) error {
	f.seedQuote(symbolID, ts, price)
	return nil
}

func (f *fakeStore) MaxQuoteTimestamp(_ context.Context, symbolID int64) (time.Time, bool, error) {
	var max time.Time
	var ok bool
	for ts := range f.quotes[symbolID] {
		if !ok || ts.After(max) {
			max = ts
			ok = true
		}
	}
	return max, ok, nil
}

func (f *fakeStore) SetLastUpdate(_ context.Context, symbolID int64, ts time.Time) error {
	for _, sym := range f.symbols {
		if sym.ID == symbolID {
			t := ts
			sym.LastUpdate = &t
			return nil
		}
	}
	return errors.New("no such symbol")
}

// fakeMarket serves canned bars and records every fetched window.
type fakeMarket struct {
	infos     map[string]provider.SymbolInfo
	bars      map[string][]provider.Bar
	barsErr   error
	errOnCall int // 1-based Bars call index that fails; 0 never
	calls     []ingest.Window
}

func (f *fakeMarket) Lookup(_ context.Context, ticker string) (provider.SymbolInfo, error) {
	info, ok := f.infos[ticker]
	if !ok {
		return provider.SymbolInfo{}, provider.ErrSymbolNotFound
	}
	return info, nil
}

func (f *fakeMarket) Bars(_ context.Context, ticker string, start, end time.Time) ([]provider.Bar, error) {
	f.calls = append(f.calls, ingest.Window{Start: start, End: end})
	if f.errOnCall > 0 && len(f.calls) == f.errOnCall {
		return nil, f.barsErr
	}
	var out []provider.Bar
	for _, b := range f.bars[ticker] {
		if !b.Timestamp.Before(start) && b.Timestamp.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func minuteBars(base time.Time, prices ...float64) []provider.Bar {
	out := make([]provider.Bar, 0, len(prices))
	for i, p := range prices {
		out = append(out, provider.Bar{Timestamp: base.Add(time.Duration(i) * time.Minute), Close: p})
	}
	return out
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	// Arrange: AAPL is already registered with ID 7 and has quotes for
	// 09:30 and 09:31; the provider serves 09:30 through 09:32.
	open := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	now := open.Add(12 * time.Hour)

	st := newFakeStore()
	st.seedSymbol(7, "AAPL", "Apple Inc.")
	st.seedQuote(7, open, "190.00")
	st.seedQuote(7, open.Add(time.Minute), "190.10")

	market := &fakeMarket{
		infos: map[string]provider.SymbolInfo{"AAPL": {Symbol: "AAPL", Name: "Apple Inc."}},
		bars:  map[string][]provider.Bar{"AAPL": minuteBars(open, 190.00, 190.10, 190.25)},
	}

	runner := &ingest.Runner{Store: st, Market: market, Now: func() time.Time { return now }}

	// Act
	report, err := runner.Run(t.Context(), []string{"AAPL"}, 1)

	// Assert: only 09:32 is new, and the marker lands on it.
	require.NoError(t, err)
	require.Equal(t, []ingest.Outcome{{Ticker: "AAPL", Inserted: 1, Skipped: 2}}, report.Outcomes)

	sym, err := st.SymbolByTicker(t.Context(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, sym.LastUpdate)
	require.True(t, sym.LastUpdate.Equal(open.Add(2*time.Minute)), "got %v", sym.LastUpdate)
}

func TestRunIdempotence(t *testing.T) {
	t.Parallel()

	open := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	now := open.Add(12 * time.Hour)

	st := newFakeStore()
	market := &fakeMarket{
		infos: map[string]provider.SymbolInfo{"MSFT": {Symbol: "MSFT", Name: "Microsoft Corporation"}},
		bars:  map[string][]provider.Bar{"MSFT": minuteBars(open, 415.10, 415.20, 415.15)},
	}
	runner := &ingest.Runner{Store: st, Market: market, Now: func() time.Time { return now }}

	first, err := runner.Run(t.Context(), []string{"MSFT"}, 2)
	require.NoError(t, err)
	require.Equal(t, 3, first.Outcomes[0].Inserted)
	require.Equal(t, 0, first.Outcomes[0].Skipped)

	// A second run over the same window writes nothing new.
	second, err := runner.Run(t.Context(), []string{"MSFT"}, 2)
	require.NoError(t, err)
	require.Equal(t, 0, second.Outcomes[0].Inserted)
	require.Equal(t, 3, second.Outcomes[0].Skipped)
}

func TestRunUnknownTicker(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	market := &fakeMarket{
		infos: map[string]provider.SymbolInfo{"AAPL": {Symbol: "AAPL", Name: "Apple Inc."}},
	}
	runner := &ingest.Runner{Store: st, Market: market}

	// Act: the invalid ticker comes first.
	report, err := runner.Run(t.Context(), []string{"NOSUCH", "AAPL"}, 1)

	// Assert: the run fails fast with no registration and no fetches; the
	// remaining ticker is never attempted.
	var unknownErr *ingest.UnknownSymbolError
	require.ErrorAs(t, err, &unknownErr)
	require.Equal(t, "NOSUCH", unknownErr.Ticker)
	require.Zero(t, st.insertedSymbols)
	require.Empty(t, market.calls)
	require.Empty(t, report.Outcomes)
}

func TestRunRegistersNewTickerWithNameFallback(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	market := &fakeMarket{
		// Valid ticker, but the provider has no display name for it.
		infos: map[string]provider.SymbolInfo{"IJK": {Symbol: "IJK"}},
	}
	runner := &ingest.Runner{Store: st, Market: market}

	_, err := runner.Run(t.Context(), []string{"IJK"}, 1)
	require.NoError(t, err)

	sym, err := st.SymbolByTicker(t.Context(), "IJK")
	require.NoError(t, err)
	require.Equal(t, "IJK", sym.Name)
}

func TestRunLeavesFreshnessUnsetWithoutQuotes(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	market := &fakeMarket{
		infos: map[string]provider.SymbolInfo{"CALA": {Symbol: "CALA", Name: "Calithera Biosciences, Inc."}},
	}
	runner := &ingest.Runner{Store: st, Market: market}

	report, err := runner.Run(t.Context(), []string{"CALA"}, 1)
	require.NoError(t, err)
	require.Equal(t, []ingest.Outcome{{Ticker: "CALA"}}, report.Outcomes)

	sym, err := st.SymbolByTicker(t.Context(), "CALA")
	require.NoError(t, err)
	require.Nil(t, sym.LastUpdate)
}

func TestRunFetchesInChunks(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)

	st := newFakeStore()
	st.seedSymbol(1, "SPY", "SPDR S&P 500 ETF Trust")
	market := &fakeMarket{bars: map[string][]provider.Bar{}}
	runner := &ingest.Runner{Store: st, Market: market, Now: func() time.Time { return now }}

	_, err := runner.Run(t.Context(), []string{"SPY"}, 28)
	require.NoError(t, err)

	// Assert: ceil(28/7) fetches exactly covering [now-28d, now).
	require.Len(t, market.calls, 4)
	require.Equal(t, now.AddDate(0, 0, -28), market.calls[0].Start)
	require.Equal(t, now, market.calls[3].End)
	for i := 1; i < len(market.calls); i++ {
		require.Equal(t, market.calls[i-1].End, market.calls[i].Start)
	}
}

func TestRunAbortsOnProviderError(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)

	st := newFakeStore()
	st.seedSymbol(1, "SPY", "SPDR S&P 500 ETF Trust")
	market := &fakeMarket{
		bars:      map[string][]provider.Bar{},
		barsErr:   errors.New("gateway timeout"),
		errOnCall: 2,
	}
	runner := &ingest.Runner{Store: st, Market: market, Now: func() time.Time { return now }}

	_, err := runner.Run(t.Context(), []string{"SPY"}, 28)
	require.ErrorContains(t, err, "gateway timeout")

	// The failing chunk is the last one attempted.
	require.Len(t, market.calls, 2)
}

func TestReportTotals(t *testing.T) {
	t.Parallel()

	report := ingest.Report{Outcomes: []ingest.Outcome{
		{Ticker: "AAPL", Inserted: 3, Skipped: 1},
		{Ticker: "MSFT", Inserted: 0, Skipped: 7},
	}}
	inserted, skipped := report.Totals()
	require.Equal(t, 3, inserted)
	require.Equal(t, 8, skipped)
}
