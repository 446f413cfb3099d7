package envelope

import (
	"encoding/json"
	"testing"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		wantErr bool
	}{
		{
			name: "valid chat request",
			req:  NewRequest("user-1", TierPro, ChatPayload{Message: "hello"}),
		},
		{
			name:    "unknown feature",
			req:     &Request{Feature: "poetry", UserID: "user-1", Tier: TierFree, Payload: ChatPayload{Message: "hi"}},
			wantErr: true,
		},
		{
			name:    "missing user",
			req:     &Request{Feature: FeatureChat, Tier: TierFree, Payload: ChatPayload{Message: "hi"}},
			wantErr: true,
		},
		{
			name:    "unknown tier",
			req:     &Request{Feature: FeatureChat, UserID: "user-1", Tier: "platinum", Payload: ChatPayload{Message: "hi"}},
			wantErr: true,
		},
		{
			name:    "missing payload",
			req:     &Request{Feature: FeatureChat, UserID: "user-1", Tier: TierFree},
			wantErr: true,
		},
		{
			name:    "payload feature mismatch",
			req:     &Request{Feature: FeatureChat, UserID: "user-1", Tier: TierFree, Payload: TaskPayload{Text: "dentist"}},
			wantErr: true,
		},
		{
			name:    "empty payload content",
			req:     &Request{Feature: FeatureChat, UserID: "user-1", Tier: TierFree, Payload: ChatPayload{Message: "   "}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestUnmarshalDecodesPayloadVariant(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		check   func(t *testing.T, req *Request)
		wantErr bool
	}{
		{
			name: "chat",
			body: `{"feature":"chat","user_id":"u1","tier":"free","payload":{"message":"hello"}}`,
			check: func(t *testing.T, req *Request) {
				p, ok := req.Payload.(ChatPayload)
				if !ok {
					t.Fatalf("expected ChatPayload, got %T", req.Payload)
				}
				if p.Message != "hello" {
					t.Errorf("Message = %q, want %q", p.Message, "hello")
				}
			},
		},
		{
			name: "task parsing",
			body: `{"feature":"task_parsing","user_id":"u1","tier":"plus","payload":{"text":"dentist tue 3pm","timezone":"Europe/Berlin"}}`,
			check: func(t *testing.T, req *Request) {
				p, ok := req.Payload.(TaskPayload)
				if !ok {
					t.Fatalf("expected TaskPayload, got %T", req.Payload)
				}
				if p.Timezone != "Europe/Berlin" {
					t.Errorf("Timezone = %q", p.Timezone)
				}
			},
		},
		{
			name: "web research",
			body: `{"feature":"web_research","user_id":"u1","tier":"pro","payload":{"query":"go releases","recency":"week"}}`,
			check: func(t *testing.T, req *Request) {
				p, ok := req.Payload.(ResearchPayload)
				if !ok {
					t.Fatalf("expected ResearchPayload, got %T", req.Payload)
				}
				if p.Recency != "week" {
					t.Errorf("Recency = %q", p.Recency)
				}
			},
		},
		{
			name: "unknown feature leaves payload nil",
			body: `{"feature":"poetry","user_id":"u1","tier":"free","payload":{"message":"hi"}}`,
			check: func(t *testing.T, req *Request) {
				if req.Payload != nil {
					t.Errorf("expected nil payload for unknown feature, got %T", req.Payload)
				}
				if err := req.Validate(); err == nil {
					t.Error("expected validation failure for unknown feature")
				}
			},
		},
		{
			name:    "malformed payload",
			body:    `{"feature":"chat","user_id":"u1","tier":"free","payload":"not-an-object"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			err := json.Unmarshal([]byte(tt.body), &req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.check != nil {
				tt.check(t, &req)
			}
		})
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	a := ChatPayload{Message: "  hello ", Context: []string{"prior turn"}}
	b := ChatPayload{Message: "hello", Context: []string{"prior turn"}}
	if a.Normalize() != b.Normalize() {
		t.Errorf("whitespace-trimmed payloads should normalize identically: %q vs %q", a.Normalize(), b.Normalize())
	}

	c := ResearchPayload{Query: "go releases", Recency: "week"}
	d := ResearchPayload{Query: "go releases", Recency: "month"}
	if c.Normalize() == d.Normalize() {
		t.Error("different recency should normalize differently")
	}
}

func TestNormalizeDistinguishesFieldSplits(t *testing.T) {
	tests := []struct {
		name string
		a, b Payload
	}{
		{
			"briefing section containing the old separator",
			BriefingPayload{Date: "2026-08-30", Sections: []string{"a,b"}},
			BriefingPayload{Date: "2026-08-30", Sections: []string{"a", "b"}},
		},
		{
			"briefing section vs style",
			BriefingPayload{Date: "2026-08-30", Sections: []string{"focus"}},
			BriefingPayload{Date: "2026-08-30", Style: "focus"},
		},
		{
			"chat message bleeding into context",
			ChatPayload{Message: "hello", Context: []string{"world"}},
			ChatPayload{Message: "hello\nworld"},
		},
		{
			"task text vs timezone",
			TaskPayload{Text: "lunch\nUTC"},
			TaskPayload{Text: "lunch", Timezone: "UTC"},
		},
		{
			"image prompt vs style",
			ImagePayload{Prompt: "cat", Style: "oil"},
			ImagePayload{Prompt: "cat\noil"},
		},
	}
	for _, tt := range tests {
		if tt.a.Normalize() == tt.b.Normalize() {
			t.Errorf("%s: distinct payloads normalized identically: %q", tt.name, tt.a.Normalize())
		}
	}
}

func TestFeatureTraits(t *testing.T) {
	tests := []struct {
		feature    FeatureType
		cacheable  bool
		userScoped bool
	}{
		{FeatureChat, false, false},
		{FeatureTaskParsing, true, false},
		{FeatureVision, true, true},
		{FeatureBriefing, true, true},
		{FeatureWebResearch, true, false},
		{FeatureImageGeneration, false, false},
	}
	for _, tt := range tests {
		traits, ok := tt.feature.Traits()
		if !ok {
			t.Errorf("%s: expected known feature", tt.feature)
			continue
		}
		if traits.Cacheable != tt.cacheable {
			t.Errorf("%s: Cacheable = %v, want %v", tt.feature, traits.Cacheable, tt.cacheable)
		}
		if traits.UserScoped != tt.userScoped {
			t.Errorf("%s: UserScoped = %v, want %v", tt.feature, traits.UserScoped, tt.userScoped)
		}
		if traits.Cacheable && traits.TTL <= 0 {
			t.Errorf("%s: cacheable feature must carry a positive TTL", tt.feature)
		}
	}
}

func TestFailedResponse(t *testing.T) {
	req := NewRequest("u1", TierFree, ChatPayload{Message: "hi"})
	resp := Failed(req, FailureQuotaExceeded, "daily limit reached")
	if resp.Success {
		t.Error("failed response must not be successful")
	}
	if resp.RequestID != req.ID {
		t.Errorf("RequestID = %q, want %q", resp.RequestID, req.ID)
	}
	if resp.Failure != FailureQuotaExceeded {
		t.Errorf("Failure = %q", resp.Failure)
	}

	// nil request still yields a usable envelope
	resp = Failed(nil, FailureInvalidRequest, "bad json")
	if resp.RequestID != "" || resp.Success {
		t.Errorf("unexpected envelope for nil request: %+v", resp)
	}
}

func TestResponseCloneIsolation(t *testing.T) {
	orig := &Response{
		RequestID: "r1",
		Success:   true,
		Content:   "answer",
		Citations: []Citation{{URL: "https://example.com"}},
	}
	clone := orig.Clone()
	clone.Citations[0].Title = "mutated"
	if orig.Citations[0].Title != "" {
		t.Error("mutating a clone must not touch the original citations")
	}
}
