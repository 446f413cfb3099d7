package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request is the normalized input to the router. Surfaces construct one per
// user action; the cache layer only ever sees its hash.
type Request struct {
	ID       string      `json:"id,omitempty"`
	Feature  FeatureType `json:"feature"`
	UserID   string      `json:"user_id"`
	Tier     Tier        `json:"tier"`
	Priority Priority    `json:"priority,omitempty"`
	Payload  Payload     `json:"payload"`
}

// NewRequest builds a request with a fresh id and normal priority.
func NewRequest(userID string, tier Tier, payload Payload) *Request {
	return &Request{
		ID:       uuid.NewString(),
		Feature:  payload.Feature(),
		UserID:   userID,
		Tier:     tier,
		Priority: PriorityNormal,
		Payload:  payload,
	}
}

// requestWire mirrors Request with a raw payload so the variant can be
// decoded once the feature tag is known.
type requestWire struct {
	ID       string          `json:"id,omitempty"`
	Feature  FeatureType     `json:"feature"`
	UserID   string          `json:"user_id"`
	Tier     Tier            `json:"tier"`
	Priority Priority        `json:"priority,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the feature tag first, then the payload variant that
// belongs to it. Unknown features leave Payload nil; Validate reports them.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w requestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.ID = w.ID
	r.Feature = w.Feature
	r.UserID = w.UserID
	r.Tier = w.Tier
	r.Priority = w.Priority
	r.Payload = nil
	if w.Feature.Known() && len(w.Payload) > 0 {
		p, err := decodePayload(w.Feature, w.Payload)
		if err != nil {
			return err
		}
		r.Payload = p
	}
	return nil
}

// Validate checks the envelope is well formed. A validation error maps to an
// invalid_request failure before the cache or ledger is touched.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("request is nil")
	}
	if !r.Feature.Known() {
		return fmt.Errorf("unknown feature type: %q", r.Feature)
	}
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if !r.Tier.Known() {
		return fmt.Errorf("unknown tier: %q", r.Tier)
	}
	if r.Payload == nil {
		return fmt.Errorf("payload is required")
	}
	if r.Payload.Feature() != r.Feature {
		return fmt.Errorf("payload type %s does not match feature %s", r.Payload.Feature(), r.Feature)
	}
	if r.Payload.Empty() {
		return fmt.Errorf("payload is empty")
	}
	return nil
}

// FailureCode is the closed set of failures a caller can observe. Per-provider
// failures are recovered inside the router and never surface here.
type FailureCode string

const (
	FailureInvalidRequest     FailureCode = "invalid_request"
	FailureQuotaExceeded      FailureCode = "quota_exceeded"
	FailureAllProvidersFailed FailureCode = "all_providers_failed"
)

// Citation is one source backing a web-research answer.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// QuotaInfo carries remaining-quota metadata on quota_exceeded responses.
type QuotaInfo struct {
	RemainingRequests int     `json:"remaining_requests"`
	RemainingUSD      float64 `json:"remaining_usd"`
	Window            string  `json:"window"`
}

// Response is the normalized router output. Expected failures are flagged,
// never raised; Success is false exactly when Failure is set.
type Response struct {
	RequestID string      `json:"request_id"`
	Feature   FeatureType `json:"feature"`
	Success   bool        `json:"success"`
	Failure   FailureCode `json:"failure,omitempty"`
	Detail    string      `json:"detail,omitempty"`

	Content   string     `json:"content,omitempty"`
	Citations []Citation `json:"citations,omitempty"`

	Provider  string        `json:"provider,omitempty"`
	Model     string        `json:"model,omitempty"`
	CacheHit  bool          `json:"cache_hit"`
	TokensIn  int           `json:"tokens_in"`
	TokensOut int           `json:"tokens_out"`
	CostUSD   float64       `json:"cost_usd"`
	Latency   time.Duration `json:"latency_ns"`

	Quota *QuotaInfo `json:"quota,omitempty"`
}

// Failed builds a failure-flagged response for the request.
func Failed(req *Request, code FailureCode, detail string) *Response {
	resp := &Response{
		Success: false,
		Failure: code,
		Detail:  detail,
	}
	if req != nil {
		resp.RequestID = req.ID
		resp.Feature = req.Feature
	}
	return resp
}

// Clone returns a copy of the response safe to hand to another caller.
// Cached entries are never mutated, only replaced.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	if len(r.Citations) > 0 {
		out.Citations = make([]Citation, len(r.Citations))
		copy(out.Citations, r.Citations)
	}
	if r.Quota != nil {
		q := *r.Quota
		out.Quota = &q
	}
	return &out
}
