package provider

import (
	"context"
	"errors"
	"time"
)

// ErrSymbolNotFound reports that the provider does not know the ticker at
// all, as opposed to a transport or decoding failure. Callers treat it as
// unrecoverable for that ticker.
var ErrSymbolNotFound = errors.New("symbol not found")

// Bar is one minute-resolution closing price observation.
type Bar struct {
	Timestamp time.Time
	Close     float64
}

// SymbolInfo is the provider's metadata for a ticker. Name may be empty when
// the provider has no display name on record.
type SymbolInfo struct {
	Symbol string
	Name   string
}

// MarketData is the normalized market-data source used by the ingestion
// engine.
type MarketData interface {
	// Lookup validates a ticker and returns its metadata. It returns
	// ErrSymbolNotFound when the provider reports the ticker as unknown.
	Lookup(ctx context.Context, ticker string) (SymbolInfo, error)

	// Bars returns minute bars for ticker over [start, end), ordered by
	// ascending timestamp. An empty window is not an error.
	Bars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
}
