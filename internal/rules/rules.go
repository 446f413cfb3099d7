// Package rules loads the static model catalog and routing table and turns
// them into ordered model preference lists at selection time.
package rules

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/soen-app/praxis/pkg/envelope"
)

// Model is the static descriptor for one upstream model.
type Model struct {
	ID           string   `yaml:"id"`
	Provider     string   `yaml:"provider"`
	Capabilities []string `yaml:"capabilities"`
	// Cost per million tokens, input and output.
	CostInPerM  float64 `yaml:"cost_in_per_m"`
	CostOutPerM float64 `yaml:"cost_out_per_m"`
	// FreePool marks models drawing from a vendor-granted credit pool.
	FreePool    bool    `yaml:"free_pool"`
	FreePoolUSD float64 `yaml:"free_pool_usd"`
}

// Has reports whether the model advertises the capability.
func (m Model) Has(cap envelope.Capability) bool {
	for _, c := range m.Capabilities {
		if c == string(cap) {
			return true
		}
	}
	return false
}

// CostUSD estimates the dollar cost of a completion at this model's rates.
func (m Model) CostUSD(tokensIn, tokensOut int) float64 {
	return float64(tokensIn)/1_000_000*m.CostInPerM + float64(tokensOut)/1_000_000*m.CostOutPerM
}

// blendedCost is the sort key for paid-tier ordering. Output tokens dominate
// completion bills, so they weigh heavier.
func (m Model) blendedCost() float64 {
	return m.CostInPerM + 3*m.CostOutPerM
}

// Table is one immutable parse of the rules file. Reloads build a new Table
// and swap it atomically; in-flight selections keep the version they started
// with.
type Table struct {
	models map[string]Model
	routes map[envelope.FeatureType]map[envelope.Tier][]string
}

type tableFile struct {
	Models []Model                                          `yaml:"models"`
	Routes map[envelope.FeatureType]map[envelope.Tier][]string `yaml:"routes"`
}

// Load reads and validates a rules file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rules file")
	}
	return Parse(data)
}

// Parse builds a Table from YAML content.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse rules file")
	}

	t := &Table{
		models: make(map[string]Model, len(f.Models)),
		routes: f.Routes,
	}
	for _, m := range f.Models {
		if m.ID == "" || m.Provider == "" {
			return nil, fmt.Errorf("model entry missing id or provider")
		}
		if _, dup := t.models[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id: %s", m.ID)
		}
		t.models[m.ID] = m
	}
	for feature, tiers := range f.Routes {
		if !feature.Known() {
			return nil, fmt.Errorf("route for unknown feature: %s", feature)
		}
		for tier, ids := range tiers {
			if !tier.Known() {
				return nil, fmt.Errorf("route for unknown tier: %s", tier)
			}
			for _, id := range ids {
				if _, ok := t.models[id]; !ok {
					return nil, fmt.Errorf("route %s/%s references unknown model: %s", feature, tier, id)
				}
			}
		}
	}
	return t, nil
}

// Model returns the descriptor for a model id.
func (t *Table) Model(id string) (Model, bool) {
	m, ok := t.models[id]
	return m, ok
}

// Candidates returns the configured candidate models for a feature and tier,
// in rule order, dropping models that lack the feature's required capability.
// A tier without an explicit route falls back to the free route.
func (t *Table) Candidates(feature envelope.FeatureType, tier envelope.Tier) []Model {
	tiers, ok := t.routes[feature]
	if !ok {
		return nil
	}
	ids, ok := tiers[tier]
	if !ok {
		ids = tiers[envelope.TierFree]
	}

	traits, _ := feature.Traits()
	out := make([]Model, 0, len(ids))
	for _, id := range ids {
		m := t.models[id]
		if m.Has(traits.Capability) {
			out = append(out, m)
		}
	}
	return out
}
