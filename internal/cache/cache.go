// Package cache stores router responses keyed by a content hash of the
// request, with per-feature time-to-live.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/soen-app/praxis/pkg/envelope"
)

// Store is the cache contract. An expired entry behaves exactly like a miss
// and is removed on lookup; no background sweep is required for correctness.
type Store interface {
	// Get returns the cached response for the key, or false on miss.
	Get(ctx context.Context, key string) (*envelope.Response, bool)
	// Put stores the response under the key for the given lifetime.
	Put(ctx context.Context, key string, resp *envelope.Response, ttl time.Duration)
	// Sweep removes expired entries for memory bounding.
	Sweep(ctx context.Context)
}

// Key derives the content-addressed cache key for a request. Identical
// feature type and normalized payload always hash identically, so replaying
// a request before expiry returns byte-identical output. User-scoped
// features fold the user id in so entries never cross users.
func Key(req *envelope.Request) string {
	traits, _ := req.Feature.Traits()

	h := sha256.New()
	h.Write([]byte(req.Feature))
	h.Write([]byte{0})
	h.Write([]byte(req.Payload.Normalize()))
	if traits.UserScoped {
		h.Write([]byte{0})
		h.Write([]byte(req.UserID))
	}
	return hex.EncodeToString(h.Sum(nil))
}
