// Package ledger records every routed request for cost and quota accounting.
// The log is append-only: invocation records are written once and only ever
// aggregated, never rewritten.
package ledger

import (
	"context"
	"time"

	"github.com/soen-app/praxis/pkg/envelope"
)

// Record is one router invocation. Exactly one is written per call to
// Route, whatever the outcome, with a single documented exception: requests
// rejected as invalid never reach the ledger.
type Record struct {
	ID        string
	Time      time.Time
	UserID    string
	Feature   envelope.FeatureType
	Provider  string
	Model     string
	TokensIn  int
	TokensOut int
	CostUSD   float64
	Latency   time.Duration
	CacheHit  bool
	Success   bool
}

// Attempt is one provider try inside an invocation's fallback loop. Attempts
// are diagnostic: quota aggregates fold over Records only.
type Attempt struct {
	RequestID string
	Time      time.Time
	Provider  string
	Model     string
	OK        bool
	Failure   string
	Latency   time.Duration
}

// Window selects the aggregation period. Windows are UTC calendar periods.
type Window string

const (
	WindowDay   Window = "day"
	WindowMonth Window = "month"
)

// Start returns the UTC start of the window containing now.
func (w Window) Start(now time.Time) time.Time {
	now = now.UTC()
	switch w {
	case WindowMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Aggregate is the folded per-user summary for a window.
type Aggregate struct {
	Requests     int
	Tokens       int
	CostUSD      float64
	CacheHits    int
	CacheHitRate float64
}

// finish derives the hit rate after folding.
func (a *Aggregate) finish() {
	if a.Requests > 0 {
		a.CacheHitRate = float64(a.CacheHits) / float64(a.Requests)
	}
}

// Ledger is the accounting contract the router depends on. Record and
// RecordAttempt never fail the caller's flow; persistence errors are logged
// and swallowed.
type Ledger interface {
	Record(ctx context.Context, rec Record)
	RecordAttempt(ctx context.Context, att Attempt)
	// Aggregate folds the user's records inside the window.
	Aggregate(ctx context.Context, userID string, window Window) (Aggregate, error)
	// ProviderSpend folds total cost routed to one provider inside the
	// window, across all users. Routing rules read this to decide whether
	// a free-credit pool still has balance.
	ProviderSpend(ctx context.Context, providerName string, window Window) (float64, error)
	Close() error
}
