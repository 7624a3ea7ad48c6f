package ratelimit

import (
	"context"
	"sync"
	"time"

	"quoteingest/internal/provider"
)

// MinInterval wraps a market-data source and enforces a minimum time between
// calls. Callers wait until the interval has elapsed since the last call, or
// return early if the context is canceled.
type MinInterval struct {
	M        provider.MarketData
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Lookup(ctx context.Context, ticker string) (provider.SymbolInfo, error) {
	if err := m.gate(ctx); err != nil {
		return provider.SymbolInfo{}, err
	}
	defer m.stamp()
	return m.M.Lookup(ctx, ticker)
}

func (m *MinInterval) Bars(ctx context.Context, ticker string, start, end time.Time) ([]provider.Bar, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	defer m.stamp()
	return m.M.Bars(ctx, ticker, start, end)
}

func (m *MinInterval) gate(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	wait := time.Until(m.last.Add(m.Interval))
	m.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MinInterval) stamp() {
	if m.Interval <= 0 {
		return
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}
