package ledger

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-process ledger. Its fold-based aggregation is the
// behavioral reference: any incrementally maintained rollup must produce the
// same numbers for the same records.
type Memory struct {
	mu       sync.Mutex
	records  []Record
	attempts []Attempt
	now      func() time.Time
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Record implements Ledger. Appends never conflict and never fail.
func (m *Memory) Record(ctx context.Context, rec Record) {
	if rec.Time.IsZero() {
		rec.Time = m.now()
	}
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
}

// RecordAttempt implements Ledger.
func (m *Memory) RecordAttempt(ctx context.Context, att Attempt) {
	if att.Time.IsZero() {
		att.Time = m.now()
	}
	m.mu.Lock()
	m.attempts = append(m.attempts, att)
	m.mu.Unlock()
}

// Aggregate implements Ledger by folding over the record slice.
func (m *Memory) Aggregate(ctx context.Context, userID string, window Window) (Aggregate, error) {
	start := window.Start(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	var agg Aggregate
	for _, rec := range m.records {
		if rec.UserID != userID || rec.Time.UTC().Before(start) {
			continue
		}
		agg.Requests++
		agg.Tokens += rec.TokensIn + rec.TokensOut
		agg.CostUSD += rec.CostUSD
		if rec.CacheHit {
			agg.CacheHits++
		}
	}
	agg.finish()
	return agg, nil
}

// ProviderSpend implements Ledger.
func (m *Memory) ProviderSpend(ctx context.Context, providerName string, window Window) (float64, error) {
	start := window.Start(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	var total float64
	for _, rec := range m.records {
		if rec.Provider != providerName || rec.Time.UTC().Before(start) {
			continue
		}
		total += rec.CostUSD
	}
	return total, nil
}

// Records returns a copy of all invocation records.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Attempts returns a copy of all attempt records.
func (m *Memory) Attempts() []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Attempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

// Close implements Ledger.
func (m *Memory) Close() error { return nil }
