package rules

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/soen-app/praxis/internal/ledger"
	"github.com/soen-app/praxis/internal/stats"
	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/logger"
)

// SpendReader supplies per-provider spend totals from the usage ledger so
// free-credit balances can steer ordering.
type SpendReader interface {
	ProviderSpend(ctx context.Context, providerName string, window ledger.Window) (float64, error)
}

// Selector turns the routing table into concrete ordered preference lists.
type Selector struct {
	table   atomic.Pointer[Table]
	spend   SpendReader
	latency *stats.Tracker
	log     *logger.Logger
}

// NewSelector wraps a loaded table with the dynamic inputs that reorder it.
// A nil latency tracker means ordering runs without latency observations.
func NewSelector(t *Table, spend SpendReader, latency *stats.Tracker) *Selector {
	if latency == nil {
		latency = stats.NewTracker()
	}
	s := &Selector{
		spend:   spend,
		latency: latency,
		log:     logger.NewComponentLogger("rules"),
	}
	s.table.Store(t)
	return s
}

// Table returns the current rules table.
func (s *Selector) Table() *Table {
	return s.table.Load()
}

// Swap atomically replaces the rules table.
func (s *Selector) Swap(t *Table) {
	s.table.Store(t)
}

// Preference returns the ordered model list for the request. Rule order is
// the starting point; models backed by a free-credit pool that still has
// balance move ahead of paid models, paid models order by blended cost per
// token, and cost ties break by observed median latency.
func (s *Selector) Preference(ctx context.Context, feature envelope.FeatureType, tier envelope.Tier) []Model {
	t := s.table.Load()
	candidates := t.Candidates(feature, tier)
	if len(candidates) == 0 {
		return nil
	}

	free := make(map[string]bool, len(candidates))
	for _, m := range candidates {
		if !m.FreePool {
			continue
		}
		spent, err := s.spend.ProviderSpend(ctx, m.Provider, ledger.WindowMonth)
		if err != nil {
			// Without a spend figure assume the pool is live; worst case
			// the vendor throttles and the fallback loop moves on.
			s.log.Warn("provider spend unavailable, assuming free pool has balance",
				"provider", m.Provider, "error", err)
			free[m.ID] = true
			continue
		}
		free[m.ID] = spent < m.FreePoolUSD
	}

	ordered := make([]Model, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if free[a.ID] != free[b.ID] {
			return free[a.ID]
		}
		if a.blendedCost() != b.blendedCost() {
			return a.blendedCost() < b.blendedCost()
		}
		return s.latency.P50(a.ID) < s.latency.P50(b.ID)
	})
	return ordered
}

// Watch reloads the rules file whenever it changes on disk. Blocks until the
// context is canceled; run it in its own goroutine.
func (s *Selector) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			t, err := Load(path)
			if err != nil {
				// Keep serving the previous table on a bad edit.
				s.log.Error("rules reload failed, keeping previous table", "error", err)
				continue
			}
			s.Swap(t)
			s.log.Info("rules reloaded", "path", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("rules watcher error", "error", err)
		}
	}
}
