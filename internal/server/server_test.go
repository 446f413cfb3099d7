package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/soen-app/praxis/internal/ledger"
	"github.com/soen-app/praxis/pkg/envelope"
)

// fakeService returns scripted responses without any real routing.
type fakeService struct {
	resp    *envelope.Response
	lastReq *envelope.Request
	usage   ledger.Aggregate
}

func (f *fakeService) Route(ctx context.Context, req *envelope.Request) *envelope.Response {
	f.lastReq = req
	if f.resp != nil {
		return f.resp
	}
	return &envelope.Response{RequestID: req.ID, Feature: req.Feature, Success: true, Content: "ok"}
}

func (f *fakeService) Usage(ctx context.Context, userID string, window ledger.Window) (ledger.Aggregate, error) {
	return f.usage, nil
}

func doRequest(t *testing.T, svc *fakeService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := New(svc)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestRouteEndpoint(t *testing.T) {
	svc := &fakeService{}
	body := `{"feature":"chat","user_id":"u1","tier":"pro","payload":{"message":"hello"}}`
	w := doRequest(t, svc, http.MethodPost, "/v1/route", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.lastReq == nil || svc.lastReq.UserID != "u1" {
		t.Errorf("service saw request %+v", svc.lastReq)
	}

	var resp envelope.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Content != "ok" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRouteEndpointStatusMapping(t *testing.T) {
	tests := []struct {
		failure envelope.FailureCode
		status  int
	}{
		{envelope.FailureInvalidRequest, http.StatusBadRequest},
		{envelope.FailureQuotaExceeded, http.StatusTooManyRequests},
		{envelope.FailureAllProvidersFailed, http.StatusBadGateway},
	}
	body := `{"feature":"chat","user_id":"u1","tier":"pro","payload":{"message":"hello"}}`

	for _, tt := range tests {
		t.Run(string(tt.failure), func(t *testing.T) {
			svc := &fakeService{resp: &envelope.Response{Success: false, Failure: tt.failure}}
			w := doRequest(t, svc, http.MethodPost, "/v1/route", body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestRouteEndpointRejectsBadJSON(t *testing.T) {
	svc := &fakeService{}
	w := doRequest(t, svc, http.MethodPost, "/v1/route", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if svc.lastReq != nil {
		t.Error("malformed body must not reach the router")
	}
}

func TestUsageEndpoint(t *testing.T) {
	svc := &fakeService{usage: ledger.Aggregate{Requests: 7, Tokens: 900, CostUSD: 0.42, CacheHits: 3, CacheHitRate: 3.0 / 7.0}}

	w := doRequest(t, svc, http.MethodGet, "/v1/usage/u1?window=month", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["user_id"] != "u1" || out["window"] != "month" {
		t.Errorf("out = %v", out)
	}
	if out["requests"].(float64) != 7 {
		t.Errorf("requests = %v", out["requests"])
	}
}

func TestUsageEndpointRejectsBadWindow(t *testing.T) {
	w := doRequest(t, &fakeService{}, http.MethodGet, "/v1/usage/u1?window=year", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	w := doRequest(t, &fakeService{}, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
