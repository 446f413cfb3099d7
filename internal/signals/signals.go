// Package signals supplies real activity signals for briefing composition.
package signals

import (
	"context"
	"fmt"

	"github.com/soen-app/praxis/internal/ledger"
)

// Signal is one named observation about the user's recent activity.
type Signal struct {
	Name  string
	Value string
}

// Source produces the signals available for a user right now. Briefing
// callers fold these into the request so the model grounds its summary in
// observed activity rather than invented numbers.
type Source interface {
	Signals(ctx context.Context, userID string) ([]Signal, error)
}

// LedgerSource derives signals from the usage ledger.
type LedgerSource struct {
	ledger ledger.Ledger
}

func NewLedgerSource(led ledger.Ledger) *LedgerSource {
	return &LedgerSource{ledger: led}
}

func (s *LedgerSource) Signals(ctx context.Context, userID string) ([]Signal, error) {
	day, err := s.ledger.Aggregate(ctx, userID, ledger.WindowDay)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily usage: %w", err)
	}
	month, err := s.ledger.Aggregate(ctx, userID, ledger.WindowMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly usage: %w", err)
	}

	out := []Signal{
		{Name: "requests_today", Value: fmt.Sprintf("%d", day.Requests)},
		{Name: "ai_cost_today_usd", Value: fmt.Sprintf("%.4f", day.CostUSD)},
		{Name: "requests_this_month", Value: fmt.Sprintf("%d", month.Requests)},
	}
	if day.Requests > 0 {
		out = append(out, Signal{Name: "cache_hit_rate_today", Value: fmt.Sprintf("%.0f%%", day.CacheHitRate*100)})
	}
	return out, nil
}

// Lines renders signals as prompt-ready "name: value" strings.
func Lines(sigs []Signal) []string {
	lines := make([]string, 0, len(sigs))
	for _, s := range sigs {
		lines = append(lines, s.Name+": "+s.Value)
	}
	return lines
}
