// Package provider defines the uniform contract every upstream AI vendor
// adapter implements, plus the typed failures that are the only error shapes
// allowed to cross the adapter boundary.
package provider

import (
	"context"
	"fmt"

	"github.com/soen-app/praxis/pkg/envelope"
)

// Result is a normalized successful completion from any vendor.
type Result struct {
	Content   string
	TokensIn  int
	TokensOut int
	// Citations holds source URLs for citation-backed answers.
	Citations []string
}

// Adapter translates the common request shape into one vendor's API call.
// Implementations must return either a Result or a *Error; vendor-specific
// error types never leak past this interface.
type Adapter interface {
	// Name returns the provider identifier used by routing rules.
	Name() string
	// Complete runs one completion against the given model. The context
	// carries the per-attempt timeout set by the router.
	Complete(ctx context.Context, modelID string, req *envelope.Request) (*Result, error)
}

// FailureKind classifies a provider attempt failure. The router reacts to the
// kind, not to the underlying vendor error.
type FailureKind int

const (
	FailureTimeout FailureKind = iota
	FailureRateLimited
	FailureInvalidResponse
	FailureUnauthorized
)

// String returns the failure kind label used in logs and ledger attempts.
func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureRateLimited:
		return "rate_limited"
	case FailureInvalidResponse:
		return "invalid_response"
	case FailureUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// Error is the typed failure adapters return. The router advances to the
// next candidate on any of these instead of surfacing them to the caller.
type Error struct {
	Kind     FailureKind
	Provider string
	Model    string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Provider, e.Model, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s", e.Provider, e.Model, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed adapter failure.
func NewError(kind FailureKind, providerName, model string, err error) *Error {
	return &Error{Kind: kind, Provider: providerName, Model: model, Err: err}
}

// Config carries the startup-resolved settings for one vendor. Credentials
// are injected here; adapters never read the environment themselves.
type Config struct {
	// APIKey is the resolved credential, empty for local providers.
	APIKey string
	// BaseURL overrides the vendor default endpoint when set. This is how
	// OpenAI-compatible vendors (Grok) are served.
	BaseURL string
	// MaxTokens caps completion length, 0 for the adapter default.
	MaxTokens int
}
