package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that a point lookup matched no row. It is distinct
// from a store failure; callers that can register missing rows check for it.
var ErrNotFound = errors.New("not found")

// Symbol is the persistent record for a ticker.
type Symbol struct {
	ID         int64
	Ticker     string
	Name       string
	LastUpdate *time.Time
}

// Quote is one persisted minute-bar closing price. Quotes are immutable and
// unique per (symbol, timestamp).
type Quote struct {
	ID        int64
	SymbolID  int64
	Price     string
	Timestamp time.Time
}

// Store is the persistence boundary of the ingestion engine. Every method
// issues exactly one logical operation.
type Store interface {
	// SymbolByTicker returns the symbol registered for ticker, or
	// ErrNotFound when none exists.
	SymbolByTicker(ctx context.Context, ticker string) (Symbol, error)

	// InsertSymbol registers a new symbol and returns its assigned ID.
	InsertSymbol(ctx context.Context, ticker, name string) (int64, error)

	// QuoteExists reports whether a quote is already on record for the
	// symbol at the given timestamp.
	QuoteExists(ctx context.Context, symbolID int64, ts time.Time) (bool, error)

	// InsertQuote persists one quote.
	InsertQuote(ctx context.Context, symbolID int64, price string, ts time.Time) error

	// MaxQuoteTimestamp returns the newest quote timestamp on record for
	// the symbol. ok is false when the symbol has no quotes.
	MaxQuoteTimestamp(ctx context.Context, symbolID int64) (ts time.Time, ok bool, err error)

	// SetLastUpdate sets the symbol's freshness marker.
	SetLastUpdate(ctx context.Context, symbolID int64, ts time.Time) error
}
