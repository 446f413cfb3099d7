package router

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/soen-app/praxis/internal/ledger"
	"github.com/soen-app/praxis/pkg/envelope"
)

// TierQuota configures the spend limits for one subscription tier. A zero
// limit means unlimited. BudgetRule is an optional boolean expression over
// the ledger aggregate that must stay true for requests to proceed, e.g.
// "cost_month < 5.0 && requests_day < 200".
type TierQuota struct {
	DailyRequests    int
	MonthlyBudgetUSD float64
	BudgetRule       string
}

type compiledQuota struct {
	TierQuota
	program *vm.Program
}

// Quota evaluates per-tier limits against ledger aggregates. Rules compile
// once at startup; a malformed rule is a configuration error, not a runtime
// surprise.
type Quota struct {
	tiers map[envelope.Tier]compiledQuota
}

// budgetEnv is the variable set budget rules may reference.
func budgetEnv(day, month ledger.Aggregate) map[string]interface{} {
	return map[string]interface{}{
		"requests_day":   day.Requests,
		"tokens_day":     day.Tokens,
		"cost_day":       day.CostUSD,
		"requests_month": month.Requests,
		"tokens_month":   month.Tokens,
		"cost_month":     month.CostUSD,
		"cache_hit_rate": month.CacheHitRate,
	}
}

// NewQuota compiles the configured tier quotas.
func NewQuota(tiers map[envelope.Tier]TierQuota) (*Quota, error) {
	q := &Quota{tiers: make(map[envelope.Tier]compiledQuota, len(tiers))}
	for tier, tq := range tiers {
		cq := compiledQuota{TierQuota: tq}
		if tq.BudgetRule != "" {
			program, err := expr.Compile(tq.BudgetRule,
				expr.Env(budgetEnv(ledger.Aggregate{}, ledger.Aggregate{})),
				expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("failed to compile budget rule for tier %s: %w", tier, err)
			}
			cq.program = program
		}
		q.tiers[tier] = cq
	}
	return q, nil
}

// Check reports whether the user may spend, plus remaining-quota metadata
// for the response envelope. An unconfigured tier is unlimited.
func (q *Quota) Check(ctx context.Context, led ledger.Ledger, userID string, tier envelope.Tier) (bool, *envelope.QuotaInfo, error) {
	cq, ok := q.tiers[tier]
	if !ok {
		return true, nil, nil
	}

	day, err := led.Aggregate(ctx, userID, ledger.WindowDay)
	if err != nil {
		return false, nil, err
	}
	month, err := led.Aggregate(ctx, userID, ledger.WindowMonth)
	if err != nil {
		return false, nil, err
	}

	info := &envelope.QuotaInfo{Window: string(ledger.WindowMonth)}
	if cq.DailyRequests > 0 {
		info.RemainingRequests = max(cq.DailyRequests-day.Requests, 0)
		info.Window = string(ledger.WindowDay)
	}
	if cq.MonthlyBudgetUSD > 0 {
		info.RemainingUSD = max(cq.MonthlyBudgetUSD-month.CostUSD, 0)
	}

	if cq.DailyRequests > 0 && day.Requests >= cq.DailyRequests {
		return false, info, nil
	}
	if cq.MonthlyBudgetUSD > 0 && month.CostUSD >= cq.MonthlyBudgetUSD {
		return false, info, nil
	}
	if cq.program != nil {
		out, err := expr.Run(cq.program, budgetEnv(day, month))
		if err != nil {
			return false, info, fmt.Errorf("failed to evaluate budget rule for tier %s: %w", tier, err)
		}
		if allowed, ok := out.(bool); ok && !allowed {
			return false, info, nil
		}
	}
	return true, info, nil
}
