// Package maintenance runs the recurring housekeeping jobs: cache expiry
// sweeps and nightly ledger rollup verification.
package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/soen-app/praxis/internal/cache"
	"github.com/soen-app/praxis/pkg/logger"
)

// RollupVerifier is implemented by ledger backends that maintain rollup
// tables alongside raw records.
type RollupVerifier interface {
	VerifyRollups(ctx context.Context) error
}

// Scheduler owns the cron jobs. Jobs are best effort; a failed run logs and
// waits for the next tick.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

// New registers the housekeeping jobs. verifier may be nil when the ledger
// backend keeps no rollups.
func New(store cache.Store, verifier RollupVerifier) *Scheduler {
	s := &Scheduler{
		cron: cron.New(),
		log:  logger.NewComponentLogger("maintenance"),
	}

	// Expired cache entries are already invisible to lookups; the sweep
	// just returns their memory.
	s.cron.AddFunc("@every 10m", func() {
		store.Sweep(context.Background())
	})

	if verifier != nil {
		s.cron.AddFunc("15 3 * * *", func() {
			if err := verifier.VerifyRollups(context.Background()); err != nil {
				s.log.Error("rollup verification failed", "error", err)
			}
		})
	}
	return s
}

// Start launches the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
