// Package router orchestrates one AI invocation end to end: validation,
// cache lookup, quota enforcement, ordered provider attempts with fallback,
// and usage accounting.
package router

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/soen-app/praxis/internal/cache"
	"github.com/soen-app/praxis/internal/ledger"
	"github.com/soen-app/praxis/internal/rules"
	"github.com/soen-app/praxis/internal/stats"
	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/logger"
	"github.com/soen-app/praxis/pkg/provider"
)

const defaultAttemptTimeout = 30 * time.Second

// TitleResolver fills in page titles for citation URLs. Optional; citations
// are served untitled when no resolver is wired.
type TitleResolver interface {
	Titles(ctx context.Context, urls []string) map[string]string
}

// Params collects the router's collaborators.
type Params struct {
	Selector *rules.Selector
	Adapters provider.Registry
	Cache    cache.Store
	Ledger   ledger.Ledger
	Quota    *Quota
	Latency  *stats.Tracker
	Titles   TitleResolver
	// AttemptTimeout bounds each single provider attempt, not the whole
	// request. Zero means the default.
	AttemptTimeout time.Duration
}

// Router is the single entry point product features call. It never returns
// a Go error to the caller; expected failures come back as failure-flagged
// response envelopes.
type Router struct {
	selector       *rules.Selector
	adapters       provider.Registry
	cache          cache.Store
	ledger         ledger.Ledger
	quota          *Quota
	latency        *stats.Tracker
	titles         TitleResolver
	attemptTimeout time.Duration

	flight singleflight.Group
	log    *logger.Logger
	now    func() time.Time
}

// New builds a router from its collaborators. A nil Latency tracker is
// replaced with a fresh one so attempts can always be observed.
func New(p Params) *Router {
	timeout := p.AttemptTimeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	if p.Latency == nil {
		p.Latency = stats.NewTracker()
	}
	return &Router{
		selector:       p.Selector,
		adapters:       p.Adapters,
		cache:          p.Cache,
		ledger:         p.Ledger,
		quota:          p.Quota,
		latency:        p.Latency,
		titles:         p.Titles,
		attemptTimeout: timeout,
		log:            logger.NewComponentLogger("router"),
		now:            time.Now,
	}
}

// Route runs one invocation. Every call that passes validation produces
// exactly one usage record, including quota rejections, fallback exhaustion
// and cache hits.
func (r *Router) Route(ctx context.Context, req *envelope.Request) *envelope.Response {
	started := r.now()

	if err := req.Validate(); err != nil {
		// Rejected before any work happens; nothing to account.
		return envelope.Failed(req, envelope.FailureInvalidRequest, err.Error())
	}
	traits, _ := req.Feature.Traits()

	var key string
	if traits.Cacheable {
		key = cache.Key(req)
		if cached, ok := r.cache.Get(ctx, key); ok {
			resp := r.serveCached(req, cached, started)
			r.record(ctx, req, resp)
			return resp
		}
	}

	if allowed, info, err := r.checkQuota(ctx, req); err == nil && !allowed {
		resp := envelope.Failed(req, envelope.FailureQuotaExceeded, "quota exhausted for tier "+string(req.Tier))
		resp.Quota = info
		resp.Latency = r.now().Sub(started)
		r.record(ctx, req, resp)
		return resp
	}

	prefs := r.selector.Preference(ctx, req.Feature, req.Tier)
	if len(prefs) == 0 {
		resp := envelope.Failed(req, envelope.FailureAllProvidersFailed, "no eligible models for feature "+string(req.Feature))
		resp.Latency = r.now().Sub(started)
		r.record(ctx, req, resp)
		return resp
	}

	var resp *envelope.Response
	if traits.Cacheable {
		resp = r.routeCoalesced(ctx, req, prefs, traits, key, started)
	} else {
		resp = r.attempt(ctx, req, prefs, traits, key)
		resp.Latency = r.now().Sub(started)
	}
	r.record(ctx, req, resp)
	return resp
}

// Usage returns the caller-facing usage summary for one user and window.
func (r *Router) Usage(ctx context.Context, userID string, window ledger.Window) (ledger.Aggregate, error) {
	return r.ledger.Aggregate(ctx, userID, window)
}

// serveCached adapts a cache entry to the current invocation. Cache hits are
// free; the marginal cost of replaying a stored answer is zero.
func (r *Router) serveCached(req *envelope.Request, cached *envelope.Response, started time.Time) *envelope.Response {
	resp := cached.Clone()
	resp.RequestID = req.ID
	resp.CacheHit = true
	resp.CostUSD = 0
	resp.Latency = r.now().Sub(started)
	return resp
}

// checkQuota wraps quota evaluation. Ledger read failures fail open: a
// broken accounting store must not take the product down.
func (r *Router) checkQuota(ctx context.Context, req *envelope.Request) (bool, *envelope.QuotaInfo, error) {
	if r.quota == nil {
		return true, nil, nil
	}
	allowed, info, err := r.quota.Check(ctx, r.ledger, req.UserID, req.Tier)
	if err != nil {
		r.log.Warn("quota check failed, allowing request", "user", req.UserID, "error", err)
		return true, nil, err
	}
	return allowed, info, nil
}

// routeCoalesced collapses concurrent identical cacheable requests into one
// upstream call. The shared call runs detached from any single caller's
// context so one impatient caller cannot cancel work other callers and the
// cache are waiting on.
func (r *Router) routeCoalesced(ctx context.Context, req *envelope.Request, prefs []rules.Model, traits envelope.Traits, key string, started time.Time) *envelope.Response {
	ch := r.flight.DoChan(key, func() (interface{}, error) {
		return r.attempt(context.WithoutCancel(ctx), req, prefs, traits, key), nil
	})

	select {
	case <-ctx.Done():
		resp := envelope.Failed(req, envelope.FailureAllProvidersFailed, "canceled while waiting for completion")
		resp.Latency = r.now().Sub(started)
		return resp
	case res := <-ch:
		resp := res.Val.(*envelope.Response).Clone()
		resp.RequestID = req.ID
		if res.Shared {
			// Followers rode along on another caller's upstream call.
			resp.CacheHit = true
			resp.CostUSD = 0
		}
		resp.Latency = r.now().Sub(started)
		return resp
	}
}

// attempt walks the preference list until one provider succeeds. Each try is
// recorded for diagnostics whether or not it lands.
func (r *Router) attempt(ctx context.Context, req *envelope.Request, prefs []rules.Model, traits envelope.Traits, key string) *envelope.Response {
	log := r.log.WithRequest(req.ID)
	lastFailure := "no providers attempted"
	for _, m := range prefs {
		adapter, ok := r.adapters.Get(m.Provider)
		if !ok {
			log.Warn("model references unconfigured provider", "model", m.ID, "provider", m.Provider)
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		began := r.now()
		result, err := adapter.Complete(attemptCtx, m.ID, req)
		cancel()
		elapsed := r.now().Sub(began)

		if err != nil {
			failure := "error"
			if pe, ok := provider.AsError(err); ok {
				failure = pe.Kind.String()
			}
			lastFailure = m.Provider + "/" + m.ID + ": " + failure
			r.ledger.RecordAttempt(ctx, ledger.Attempt{
				RequestID: req.ID,
				Time:      r.now(),
				Provider:  m.Provider,
				Model:     m.ID,
				Failure:   failure,
				Latency:   elapsed,
			})
			log.Warn("provider attempt failed, falling back",
				"provider", m.Provider, "model", m.ID, "failure", failure, "error", err)
			continue
		}

		r.ledger.RecordAttempt(ctx, ledger.Attempt{
			RequestID: req.ID,
			Time:      r.now(),
			Provider:  m.Provider,
			Model:     m.ID,
			OK:        true,
			Latency:   elapsed,
		})
		r.latency.Observe(m.ID, elapsed)

		resp := r.buildResponse(ctx, req, m, result, elapsed)
		if traits.Cacheable {
			r.cache.Put(ctx, key, resp, traits.TTL)
		}
		return resp
	}

	return envelope.Failed(req, envelope.FailureAllProvidersFailed, lastFailure)
}

// buildResponse normalizes a provider result into the response envelope,
// pricing it against the serving model.
func (r *Router) buildResponse(ctx context.Context, req *envelope.Request, m rules.Model, result *provider.Result, elapsed time.Duration) *envelope.Response {
	resp := &envelope.Response{
		RequestID: req.ID,
		Feature:   req.Feature,
		Success:   true,
		Content:   result.Content,
		Provider:  m.Provider,
		Model:     m.ID,
		TokensIn:  result.TokensIn,
		TokensOut: result.TokensOut,
		CostUSD:   m.CostUSD(result.TokensIn, result.TokensOut),
		Latency:   elapsed,
	}
	if len(result.Citations) > 0 {
		var titles map[string]string
		if r.titles != nil {
			titles = r.titles.Titles(ctx, result.Citations)
		}
		resp.Citations = make([]envelope.Citation, 0, len(result.Citations))
		for _, url := range result.Citations {
			resp.Citations = append(resp.Citations, envelope.Citation{URL: url, Title: titles[url]})
		}
	}
	return resp
}

// record writes the single per-invocation usage record.
func (r *Router) record(ctx context.Context, req *envelope.Request, resp *envelope.Response) {
	r.ledger.Record(ctx, ledger.Record{
		ID:        req.ID,
		Time:      r.now(),
		UserID:    req.UserID,
		Feature:   req.Feature,
		Provider:  resp.Provider,
		Model:     resp.Model,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		CostUSD:   resp.CostUSD,
		Latency:   resp.Latency,
		CacheHit:  resp.CacheHit,
		Success:   resp.Success,
	})
}
