// Package stats keeps sliding-window latency observations per model, used by
// the router to break ties between candidates of comparable cost.
package stats

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// windowSize caps the number of observations retained per model.
const windowSize = 128

// Tracker records completion latencies per model id.
type Tracker struct {
	mu      sync.RWMutex
	windows map[string][]float64
}

// NewTracker creates an empty latency tracker.
func NewTracker() *Tracker {
	return &Tracker{
		windows: make(map[string][]float64),
	}
}

// Observe records one completion latency for the model.
func (t *Tracker) Observe(modelID string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := append(t.windows[modelID], d.Seconds())
	if len(w) > windowSize {
		w = w[len(w)-windowSize:]
	}
	t.windows[modelID] = w
}

// P50 returns the median observed latency in seconds for the model.
// Models with no observations report zero, which sorts them first; an
// untried model is always worth one attempt.
func (t *Tracker) P50(modelID string) float64 {
	return t.quantile(modelID, 0.5)
}

// P95 returns the 95th-percentile observed latency in seconds for the model.
func (t *Tracker) P95(modelID string) float64 {
	return t.quantile(modelID, 0.95)
}

// Mean returns the mean observed latency in seconds for the model.
func (t *Tracker) Mean(modelID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	w := t.windows[modelID]
	if len(w) == 0 {
		return 0
	}
	return stat.Mean(w, nil)
}

func (t *Tracker) quantile(modelID string, q float64) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	w := t.windows[modelID]
	if len(w) == 0 {
		return 0
	}
	sorted := make([]float64, len(w))
	copy(sorted, w)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}
