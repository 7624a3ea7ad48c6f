// Package ingest drives one incremental ingestion run: resolve each
// configured ticker to a stored symbol, fetch its minute bars in bounded
// windows, write only the quotes not already on record, and advance the
// symbol's freshness marker.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quoteingest/internal/provider"
	"quoteingest/internal/store"
)

// DefaultChunkDays is the provider fetch window size.
const DefaultChunkDays = 7

// UnknownSymbolError reports a ticker that is absent from the store and
// rejected by the market-data provider. It is unrecoverable for that ticker.
type UnknownSymbolError struct {
	Ticker string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("invalid ticker %q: not found in market data provider", e.Ticker)
}

// Outcome is the per-ticker result of a run.
type Outcome struct {
	Ticker   string
	Inserted int
	Skipped  int
}

// Report aggregates outcomes in the order the tickers were configured.
type Report struct {
	Outcomes []Outcome
}

// Totals sums inserted and skipped counts across all tickers.
func (r Report) Totals() (inserted, skipped int) {
	for _, o := range r.Outcomes {
		inserted += o.Inserted
		skipped += o.Skipped
	}
	return inserted, skipped
}

// Runner executes ingestion runs. Symbols are processed strictly one at a
// time; the first failure aborts the run.
type Runner struct {
	Store  store.Store
	Market provider.MarketData
	Log    *zap.Logger

	// Now is the clock used to anchor the lookback window. Defaults to
	// time.Now.
	Now func() time.Time

	// ChunkDays is the provider fetch window size in days. Defaults to
	// DefaultChunkDays.
	ChunkDays int
}

func (r *Runner) log() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) chunk() time.Duration {
	days := r.ChunkDays
	if days <= 0 {
		days = DefaultChunkDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Run ingests quotes for each ticker over the last lookbackDays days. The
// window is anchored once, at the start of the run. Processing is
// all-or-nothing: an error for any ticker aborts the remaining ones, and the
// partial report accumulated so far is returned alongside the error.
func (r *Runner) Run(ctx context.Context, tickers []string, lookbackDays int) (Report, error) {
	end := r.now()
	start := end.AddDate(0, 0, -lookbackDays)

	var report Report
	for _, ticker := range tickers {
		outcome, err := r.ingestTicker(ctx, ticker, start, end)
		if err != nil {
			return report, fmt.Errorf("processing ticker %s: %w", ticker, err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report, nil
}

func (r *Runner) ingestTicker(ctx context.Context, ticker string, start, end time.Time) (Outcome, error) {
	r.log().Info("fetching quotes", zap.String("ticker", ticker))

	symbolID, err := r.resolveSymbol(ctx, ticker)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Ticker: ticker}
	for _, w := range Windows(start, end, r.chunk()) {
		r.log().Debug("fetching window",
			zap.String("ticker", ticker),
			zap.Time("start", w.Start),
			zap.Time("end", w.End))

		bars, err := r.Market.Bars(ctx, ticker, w.Start, w.End)
		if err != nil {
			return Outcome{}, fmt.Errorf("fetching %s window %s..%s: %w",
				ticker, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), err)
		}

		for _, bar := range bars {
			ts := bar.Timestamp.UTC().Truncate(time.Minute)
			inserted, err := r.writeQuote(ctx, symbolID, FormatPrice(bar.Close), ts)
			if err != nil {
				return Outcome{}, err
			}
			if inserted {
				outcome.Inserted++
			} else {
				outcome.Skipped++
			}
		}
	}

	if err := r.refreshSymbol(ctx, symbolID); err != nil {
		return Outcome{}, err
	}

	r.log().Info("ticker done",
		zap.String("ticker", ticker),
		zap.Int("inserted", outcome.Inserted),
		zap.Int("skipped", outcome.Skipped))
	return outcome, nil
}

// resolveSymbol maps a ticker to its stored symbol ID, registering the
// ticker when the provider confirms it exists. The registered name falls
// back to the ticker itself when the provider has none.
func (r *Runner) resolveSymbol(ctx context.Context, ticker string) (int64, error) {
	sym, err := r.Store.SymbolByTicker(ctx, ticker)
	if err == nil {
		return sym.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	r.log().Debug("validating ticker with provider", zap.String("ticker", ticker))
	info, err := r.Market.Lookup(ctx, ticker)
	if errors.Is(err, provider.ErrSymbolNotFound) {
		return 0, &UnknownSymbolError{Ticker: ticker}
	}
	if err != nil {
		return 0, fmt.Errorf("validating ticker %s: %w", ticker, err)
	}

	name := info.Name
	if name == "" {
		name = ticker
	}
	id, err := r.Store.InsertSymbol(ctx, ticker, name)
	if err != nil {
		return 0, err
	}
	r.log().Info("registered new symbol",
		zap.String("ticker", ticker),
		zap.String("name", name),
		zap.Int64("id", id))
	return id, nil
}

// writeQuote inserts the quote unless one is already on record for the same
// (symbol, timestamp). The check and the insert are separate store calls;
// single-runner execution keeps that benign, and the store's unique index
// backs it up.
func (r *Runner) writeQuote(ctx context.Context, symbolID int64, price string, ts time.Time) (bool, error) {
	exists, err := r.Store.QuoteExists(ctx, symbolID, ts)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := r.Store.InsertQuote(ctx, symbolID, price, ts); err != nil {
		return false, err
	}
	return true, nil
}

// refreshSymbol advances the symbol's freshness marker to the newest quote
// timestamp on record. A symbol with no quotes is left untouched.
func (r *Runner) refreshSymbol(ctx context.Context, symbolID int64) error {
	ts, ok, err := r.Store.MaxQuoteTimestamp(ctx, symbolID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return r.Store.SetLastUpdate(ctx, symbolID, ts)
}
