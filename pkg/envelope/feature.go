// Package envelope defines the normalized request and response shapes that
// flow between the product surfaces and the AI router.
package envelope

import "time"

// FeatureType identifies which product capability is calling the router.
type FeatureType string

const (
	FeatureChat            FeatureType = "chat"
	FeatureTaskParsing     FeatureType = "task_parsing"
	FeatureVision          FeatureType = "vision"
	FeatureBriefing        FeatureType = "briefing"
	FeatureWebResearch     FeatureType = "web_research"
	FeatureImageGeneration FeatureType = "image_generation"
)

// Capability names a model capability a feature requires.
type Capability string

const (
	CapabilityText       Capability = "text"
	CapabilityStructured Capability = "structured"
	CapabilityVision     Capability = "vision"
	CapabilityCitations  Capability = "citations"
	CapabilityImageGen   Capability = "image_generation"
)

// Traits describes the static routing-relevant properties of a feature type.
type Traits struct {
	// Cacheable features may be answered from the response cache.
	Cacheable bool
	// TTL is the default cache lifetime for cacheable features.
	TTL time.Duration
	// UserScoped features include the user id in the cache key so one
	// user's cached answer is never served to another.
	UserScoped bool
	// Capability the serving model must have.
	Capability Capability
}

// featureTraits is the closed set of feature types the router understands.
// Chat bypasses the cache entirely: conversational turns carry live personal
// context and must never be replayed across requests.
var featureTraits = map[FeatureType]Traits{
	FeatureChat: {
		Cacheable:  false,
		Capability: CapabilityText,
	},
	FeatureTaskParsing: {
		Cacheable:  true,
		TTL:        10 * time.Minute,
		Capability: CapabilityStructured,
	},
	FeatureVision: {
		Cacheable:  true,
		TTL:        30 * time.Minute,
		UserScoped: true,
		Capability: CapabilityVision,
	},
	FeatureBriefing: {
		Cacheable:  true,
		TTL:        4 * time.Hour,
		UserScoped: true,
		Capability: CapabilityText,
	},
	FeatureWebResearch: {
		Cacheable:  true,
		TTL:        time.Hour,
		Capability: CapabilityCitations,
	},
	FeatureImageGeneration: {
		Cacheable:  false,
		Capability: CapabilityImageGen,
	},
}

// Traits returns the static traits for the feature type.
// The second return value is false for unknown feature types.
func (f FeatureType) Traits() (Traits, bool) {
	t, ok := featureTraits[f]
	return t, ok
}

// Known reports whether the feature type is part of the closed set.
func (f FeatureType) Known() bool {
	_, ok := featureTraits[f]
	return ok
}

// Features returns all known feature types.
func Features() []FeatureType {
	return []FeatureType{
		FeatureChat,
		FeatureTaskParsing,
		FeatureVision,
		FeatureBriefing,
		FeatureWebResearch,
		FeatureImageGeneration,
	}
}

// Tier identifies the caller's subscription tier.
type Tier string

const (
	TierFree Tier = "free"
	TierPlus Tier = "plus"
	TierPro  Tier = "pro"
)

// Known reports whether the tier is one of the supported tiers.
func (t Tier) Known() bool {
	switch t {
	case TierFree, TierPlus, TierPro:
		return true
	}
	return false
}

// Priority is a hint from the caller about request urgency. It never
// changes routing correctness, only queueing behavior at the surface.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)
