package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soen-app/praxis/internal/cache"
	"github.com/soen-app/praxis/internal/ledger"
	"github.com/soen-app/praxis/internal/rules"
	"github.com/soen-app/praxis/internal/stats"
	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/provider"
)

const routerTestRules = `
models:
  - id: model-a
    provider: alpha
    capabilities: [text, structured]
    cost_in_per_m: 0.10
    cost_out_per_m: 0.50
  - id: model-b
    provider: beta
    capabilities: [text, structured]
    cost_in_per_m: 1.00
    cost_out_per_m: 5.00
  - id: model-c
    provider: gamma
    capabilities: [text, structured, citations]
    cost_in_per_m: 2.00
    cost_out_per_m: 10.00

routes:
  chat:
    free: [model-a, model-b, model-c]
  task_parsing:
    free: [model-a, model-b]
  web_research:
    free: [model-c]
`

// fakeAdapter runs a scripted complete function and counts invocations.
type fakeAdapter struct {
	name     string
	calls    int
	complete func(modelID string, req *envelope.Request) (*provider.Result, error)
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Complete(ctx context.Context, modelID string, req *envelope.Request) (*provider.Result, error) {
	f.calls++
	return f.complete(modelID, req)
}

func succeedWith(content string) func(string, *envelope.Request) (*provider.Result, error) {
	return func(modelID string, req *envelope.Request) (*provider.Result, error) {
		return &provider.Result{Content: content, TokensIn: 100, TokensOut: 50}, nil
	}
}

func failWith(kind provider.FailureKind, name string) func(string, *envelope.Request) (*provider.Result, error) {
	return func(modelID string, req *envelope.Request) (*provider.Result, error) {
		return nil, provider.NewError(kind, name, modelID, errors.New("boom"))
	}
}

// harness bundles the router under test with its observable collaborators.
type harness struct {
	router *Router
	ledger *ledger.Memory
	cache  *cache.Memory
	alpha  *fakeAdapter
	beta   *fakeAdapter
	gamma  *fakeAdapter
}

func newHarness(t *testing.T, quota *Quota) *harness {
	t.Helper()
	table, err := rules.Parse([]byte(routerTestRules))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	h := &harness{
		ledger: ledger.NewMemory(),
		cache:  cache.NewMemory(),
		alpha:  &fakeAdapter{name: "alpha", complete: succeedWith("from alpha")},
		beta:   &fakeAdapter{name: "beta", complete: succeedWith("from beta")},
		gamma:  &fakeAdapter{name: "gamma", complete: succeedWith("from gamma")},
	}
	tracker := stats.NewTracker()
	h.router = New(Params{
		Selector: rules.NewSelector(table, h.ledger, tracker),
		Adapters: provider.Registry{"alpha": h.alpha, "beta": h.beta, "gamma": h.gamma},
		Cache:    h.cache,
		Ledger:   h.ledger,
		Quota:    quota,
		Latency:  tracker,
	})
	return h
}

func chatRequest(user string) *envelope.Request {
	return envelope.NewRequest(user, envelope.TierFree, envelope.ChatPayload{Message: "hello"})
}

func taskRequest(user, text string) *envelope.Request {
	return envelope.NewRequest(user, envelope.TierFree, envelope.TaskPayload{Text: text})
}

func TestRouteSuccess(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.router.Route(context.Background(), chatRequest("u1"))

	if !resp.Success {
		t.Fatalf("Route failed: %s %s", resp.Failure, resp.Detail)
	}
	if resp.Provider != "alpha" || resp.Model != "model-a" {
		t.Errorf("served by %s/%s, want alpha/model-a", resp.Provider, resp.Model)
	}
	if resp.CostUSD <= 0 {
		t.Errorf("CostUSD = %v, want positive", resp.CostUSD)
	}

	recs := h.ledger.Records()
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if !recs[0].Success || recs[0].Model != "model-a" || recs[0].CostUSD != resp.CostUSD {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestRouteFallbackOrdering(t *testing.T) {
	h := newHarness(t, nil)
	h.alpha.complete = failWith(provider.FailureTimeout, "alpha")

	resp := h.router.Route(context.Background(), chatRequest("u1"))

	if !resp.Success {
		t.Fatalf("Route failed: %s %s", resp.Failure, resp.Detail)
	}
	if resp.Provider != "beta" {
		t.Errorf("served by %s, want beta", resp.Provider)
	}
	if h.gamma.calls != 0 {
		t.Errorf("gamma was called %d times; fallback must stop at the first success", h.gamma.calls)
	}

	// One failed attempt plus one successful attempt, but exactly one
	// invocation record.
	atts := h.ledger.Attempts()
	if len(atts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(atts))
	}
	if atts[0].OK || atts[0].Failure != "timeout" || atts[0].Provider != "alpha" {
		t.Errorf("first attempt = %+v", atts[0])
	}
	if !atts[1].OK || atts[1].Provider != "beta" {
		t.Errorf("second attempt = %+v", atts[1])
	}
	if len(h.ledger.Records()) != 1 {
		t.Errorf("records = %d, want 1", len(h.ledger.Records()))
	}
}

func TestRouteAllProvidersFailed(t *testing.T) {
	h := newHarness(t, nil)
	h.alpha.complete = failWith(provider.FailureTimeout, "alpha")
	h.beta.complete = failWith(provider.FailureRateLimited, "beta")
	h.gamma.complete = failWith(provider.FailureInvalidResponse, "gamma")

	resp := h.router.Route(context.Background(), chatRequest("u1"))

	if resp.Success || resp.Failure != envelope.FailureAllProvidersFailed {
		t.Fatalf("resp = %+v", resp)
	}

	recs := h.ledger.Records()
	if len(recs) != 1 || recs[0].Success {
		t.Errorf("expected one failed invocation record, got %+v", recs)
	}
	if len(h.ledger.Attempts()) != 3 {
		t.Errorf("attempts = %d, want 3", len(h.ledger.Attempts()))
	}
}

func TestRouteCacheHitIsIdempotentAndFree(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first := h.router.Route(ctx, taskRequest("u1", "dentist tue 3pm"))
	if !first.Success || first.CacheHit {
		t.Fatalf("first = %+v", first)
	}

	second := h.router.Route(ctx, taskRequest("u1", "dentist tue 3pm"))
	if !second.Success {
		t.Fatalf("second failed: %s", second.Detail)
	}
	if !second.CacheHit {
		t.Error("second identical request must be a cache hit")
	}
	if second.Content != first.Content {
		t.Errorf("cached content diverged: %q vs %q", second.Content, first.Content)
	}
	if second.CostUSD != 0 {
		t.Errorf("cache hit CostUSD = %v, want 0", second.CostUSD)
	}
	if h.alpha.calls != 1 {
		t.Errorf("provider called %d times, want 1", h.alpha.calls)
	}

	// Both invocations are accounted.
	recs := h.ledger.Records()
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if !recs[1].CacheHit || recs[1].CostUSD != 0 {
		t.Errorf("cache-hit record = %+v", recs[1])
	}
}

func TestRouteChatBypassesCache(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.router.Route(ctx, chatRequest("u1"))
	h.router.Route(ctx, chatRequest("u1"))

	if h.alpha.calls != 2 {
		t.Errorf("chat must reach the provider every time, calls = %d", h.alpha.calls)
	}
	if h.cache.Len() != 0 {
		t.Errorf("chat responses must never be cached, cache Len = %d", h.cache.Len())
	}
}

func TestRouteInvalidRequest(t *testing.T) {
	h := newHarness(t, nil)

	req := &envelope.Request{Feature: "poetry", UserID: "u1", Tier: envelope.TierFree}
	resp := h.router.Route(context.Background(), req)

	if resp.Success || resp.Failure != envelope.FailureInvalidRequest {
		t.Fatalf("resp = %+v", resp)
	}
	if len(h.ledger.Records()) != 0 || len(h.ledger.Attempts()) != 0 {
		t.Error("invalid requests must not touch the ledger")
	}
	if h.alpha.calls+h.beta.calls+h.gamma.calls != 0 {
		t.Error("invalid requests must not reach providers")
	}
}

func TestRouteQuotaExceeded(t *testing.T) {
	quota, err := NewQuota(map[envelope.Tier]TierQuota{
		envelope.TierFree: {DailyRequests: 1},
	})
	if err != nil {
		t.Fatalf("NewQuota: %v", err)
	}
	h := newHarness(t, quota)
	ctx := context.Background()

	if resp := h.router.Route(ctx, chatRequest("u1")); !resp.Success {
		t.Fatalf("first request failed: %s", resp.Detail)
	}

	resp := h.router.Route(ctx, chatRequest("u1"))
	if resp.Success || resp.Failure != envelope.FailureQuotaExceeded {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Quota == nil || resp.Quota.RemainingRequests != 0 {
		t.Errorf("quota info = %+v", resp.Quota)
	}
	if h.alpha.calls != 1 {
		t.Errorf("rejected request reached a provider, calls = %d", h.alpha.calls)
	}

	// The rejection itself is accounted.
	recs := h.ledger.Records()
	if len(recs) != 2 || recs[1].Success {
		t.Errorf("records = %+v", recs)
	}

	// Another user is unaffected.
	if resp := h.router.Route(ctx, chatRequest("u2")); !resp.Success {
		t.Errorf("u2 blocked by u1's quota: %s", resp.Detail)
	}
}

func TestRouteCachedAnswersSurviveQuota(t *testing.T) {
	quota, err := NewQuota(map[envelope.Tier]TierQuota{
		envelope.TierFree: {DailyRequests: 2},
	})
	if err != nil {
		t.Fatalf("NewQuota: %v", err)
	}
	h := newHarness(t, quota)
	ctx := context.Background()

	// Populate the cache, then exhaust the quota with a chat request.
	if resp := h.router.Route(ctx, taskRequest("u1", "dentist tue 3pm")); !resp.Success {
		t.Fatalf("task request failed: %s", resp.Detail)
	}
	if resp := h.router.Route(ctx, chatRequest("u1")); !resp.Success {
		t.Fatalf("chat request failed: %s", resp.Detail)
	}

	// Fresh work is now rejected.
	if resp := h.router.Route(ctx, chatRequest("u1")); resp.Failure != envelope.FailureQuotaExceeded {
		t.Fatalf("expected quota_exceeded, got %+v", resp)
	}

	// The cached answer still serves; it costs nothing.
	resp := h.router.Route(ctx, taskRequest("u1", "dentist tue 3pm"))
	if !resp.Success || !resp.CacheHit {
		t.Errorf("cached answer blocked by quota: %+v", resp)
	}
}

func TestRouteBudgetRule(t *testing.T) {
	quota, err := NewQuota(map[envelope.Tier]TierQuota{
		envelope.TierFree: {BudgetRule: "cost_month < 0.5"},
	})
	if err != nil {
		t.Fatalf("NewQuota: %v", err)
	}
	h := newHarness(t, quota)
	ctx := context.Background()

	// Under budget: allowed.
	if resp := h.router.Route(ctx, chatRequest("u1")); !resp.Success {
		t.Fatalf("request under budget failed: %s", resp.Detail)
	}

	// Seed spend past the rule threshold.
	h.ledger.Record(ctx, ledger.Record{ID: "seed", UserID: "u1", Time: time.Now(), CostUSD: 1.0, Success: true})

	resp := h.router.Route(ctx, chatRequest("u1"))
	if resp.Failure != envelope.FailureQuotaExceeded {
		t.Errorf("expected budget rule rejection, got %+v", resp)
	}
}

func TestRouteQuotaRejectsUnknownRule(t *testing.T) {
	if _, err := NewQuota(map[envelope.Tier]TierQuota{
		envelope.TierFree: {BudgetRule: "cost_month <"},
	}); err == nil {
		t.Error("expected compile error for malformed budget rule")
	}
}

// fakeTitles resolves every URL to a canned title.
type fakeTitles map[string]string

func (f fakeTitles) Titles(ctx context.Context, urls []string) map[string]string { return f }

func TestRouteCitations(t *testing.T) {
	table, err := rules.Parse([]byte(routerTestRules))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	led := ledger.NewMemory()
	tracker := stats.NewTracker()
	gamma := &fakeAdapter{name: "gamma", complete: func(modelID string, req *envelope.Request) (*provider.Result, error) {
		return &provider.Result{
			Content:   "answer with sources",
			TokensIn:  50,
			TokensOut: 100,
			Citations: []string{"https://example.com/a", "https://example.com/b"},
		}, nil
	}}
	r := New(Params{
		Selector: rules.NewSelector(table, led, tracker),
		Adapters: provider.Registry{"gamma": gamma},
		Cache:    cache.NewMemory(),
		Ledger:   led,
		Latency:  tracker,
		Titles:   fakeTitles{"https://example.com/a": "Example A"},
	})

	req := envelope.NewRequest("u1", envelope.TierFree, envelope.ResearchPayload{Query: "go releases"})
	resp := r.Route(context.Background(), req)
	if !resp.Success {
		t.Fatalf("Route failed: %s", resp.Detail)
	}
	if len(resp.Citations) != 2 {
		t.Fatalf("citations = %d, want 2", len(resp.Citations))
	}
	if resp.Citations[0].Title != "Example A" {
		t.Errorf("first citation title = %q", resp.Citations[0].Title)
	}
	if resp.Citations[1].Title != "" {
		t.Errorf("unresolved citation should stay untitled, got %q", resp.Citations[1].Title)
	}
}

func TestRouteNoEligibleModels(t *testing.T) {
	h := newHarness(t, nil)

	// image_generation has no route in the test table.
	req := envelope.NewRequest("u1", envelope.TierFree, envelope.ImagePayload{Prompt: "a sunset"})
	resp := h.router.Route(context.Background(), req)

	if resp.Failure != envelope.FailureAllProvidersFailed {
		t.Fatalf("resp = %+v", resp)
	}
	if len(h.ledger.Records()) != 1 {
		t.Errorf("records = %d, want 1", len(h.ledger.Records()))
	}
}

func TestRouteSkipsUnconfiguredProvider(t *testing.T) {
	h := newHarness(t, nil)
	delete(h.router.adapters, "alpha")

	resp := h.router.Route(context.Background(), chatRequest("u1"))
	if !resp.Success || resp.Provider != "beta" {
		t.Errorf("resp = %+v, want success via beta", resp)
	}
}

func TestUsagePassthrough(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.router.Route(ctx, chatRequest("u1"))
	h.router.Route(ctx, chatRequest("u1"))

	agg, err := h.router.Usage(ctx, "u1", ledger.WindowDay)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if agg.Requests != 2 {
		t.Errorf("Requests = %d, want 2", agg.Requests)
	}
	if agg.Tokens != 300 {
		t.Errorf("Tokens = %d, want 300", agg.Tokens)
	}
}

func TestRouteWithoutLatencyTracker(t *testing.T) {
	table, err := rules.Parse([]byte(routerTestRules))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	led := ledger.NewMemory()
	alpha := &fakeAdapter{name: "alpha", complete: succeedWith("from alpha")}
	r := New(Params{
		Selector: rules.NewSelector(table, led, nil),
		Adapters: provider.Registry{"alpha": alpha},
		Cache:    cache.NewMemory(),
		Ledger:   led,
	})

	resp := r.Route(context.Background(), chatRequest("u1"))
	if !resp.Success {
		t.Fatalf("expected success without a latency tracker, got %s: %s", resp.Failure, resp.Detail)
	}
}
