package perplexity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(provider.Config{APIKey: "pk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func researchRequest(query, recency string) *envelope.Request {
	return envelope.NewRequest("u1", envelope.TierPro, envelope.ResearchPayload{Query: query, Recency: recency})
}

func TestCompleteParsesCitations(t *testing.T) {
	var gotBody chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer pk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices":   []map[string]any{{"message": map[string]string{"content": "sourced answer"}}},
			"usage":     map[string]int{"prompt_tokens": 42, "completion_tokens": 128},
			"citations": []string{"https://example.com/a"},
		})
	})

	res, err := c.Complete(context.Background(), "sonar", researchRequest("go releases", "week"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Content != "sourced answer" || res.TokensIn != 42 || res.TokensOut != 128 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Citations) != 1 || res.Citations[0] != "https://example.com/a" {
		t.Errorf("citations = %v", res.Citations)
	}
	if gotBody.SearchRecencyFilter != "week" {
		t.Errorf("recency filter = %q", gotBody.SearchRecencyFilter)
	}
	if gotBody.Model != "sonar" {
		t.Errorf("model = %q", gotBody.Model)
	}
}

func TestCompleteClassifiesStatusFailures(t *testing.T) {
	tests := []struct {
		status int
		kind   provider.FailureKind
	}{
		{http.StatusTooManyRequests, provider.FailureRateLimited},
		{http.StatusUnauthorized, provider.FailureUnauthorized},
		{http.StatusGatewayTimeout, provider.FailureTimeout},
	}

	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := c.Complete(context.Background(), "sonar", researchRequest("q", ""))
		pe, ok := provider.AsError(err)
		if !ok {
			t.Fatalf("status %d: expected typed error, got %v", tt.status, err)
		}
		if pe.Kind != tt.kind {
			t.Errorf("status %d: kind = %s, want %s", tt.status, pe.Kind, tt.kind)
		}
	}
}

func TestCompleteRejectsEmptyContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	_, err := c.Complete(context.Background(), "sonar", researchRequest("q", ""))
	pe, ok := provider.AsError(err)
	if !ok || pe.Kind != provider.FailureInvalidResponse {
		t.Errorf("err = %v, want invalid_response", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(provider.Config{}); err == nil {
		t.Error("expected error without API key")
	}
}
