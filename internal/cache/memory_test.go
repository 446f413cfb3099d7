package cache

import (
	"context"
	"testing"
	"time"

	"github.com/soen-app/praxis/pkg/envelope"
)

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	resp := &envelope.Response{RequestID: "r1", Success: true, Content: "answer"}
	store.Put(ctx, "k1", resp, time.Minute)

	got, ok := store.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Content != "answer" {
		t.Errorf("Content = %q", got.Content)
	}

	if _, ok := store.Get(ctx, "other"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Put(ctx, "k1", &envelope.Response{Content: "a"}, 10*time.Minute)

	now = now.Add(9 * time.Minute)
	if _, ok := store.Get(ctx, "k1"); !ok {
		t.Error("entry expired early")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(ctx, "k1"); ok {
		t.Error("expected expired entry to behave like a miss")
	}
	if store.Len() != 0 {
		t.Errorf("expired lookup should evict, Len = %d", store.Len())
	}
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Put(ctx, "short", &envelope.Response{}, time.Minute)
	store.Put(ctx, "long", &envelope.Response{}, time.Hour)

	now = now.Add(10 * time.Minute)
	store.Sweep(ctx)

	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
	if _, ok := store.Get(ctx, "long"); !ok {
		t.Error("sweep removed a live entry")
	}
}

func TestMemoryZeroTTLIgnored(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	store.Put(ctx, "k", &envelope.Response{}, 0)
	if store.Len() != 0 {
		t.Error("zero-ttl entries must not be stored")
	}
}

func TestMemoryCloneIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	store.Put(ctx, "k", &envelope.Response{Content: "a", Citations: []envelope.Citation{{URL: "u"}}}, time.Minute)

	got, _ := store.Get(ctx, "k")
	got.Content = "mutated"
	got.Citations[0].Title = "mutated"

	again, _ := store.Get(ctx, "k")
	if again.Content != "a" || again.Citations[0].Title != "" {
		t.Error("mutating a returned response must not affect the stored entry")
	}
}

func TestKeyScoping(t *testing.T) {
	base := envelope.NewRequest("u1", envelope.TierPro, envelope.TaskPayload{Text: "dentist tue 3pm"})

	same := envelope.NewRequest("u2", envelope.TierFree, envelope.TaskPayload{Text: "dentist tue 3pm"})
	if Key(base) != Key(same) {
		t.Error("task parsing is not user scoped; identical payloads must share a key")
	}

	other := envelope.NewRequest("u1", envelope.TierPro, envelope.TaskPayload{Text: "dentist wed 3pm"})
	if Key(base) == Key(other) {
		t.Error("different payloads must not share a key")
	}

	// Briefings are user scoped.
	b1 := envelope.NewRequest("u1", envelope.TierPro, envelope.BriefingPayload{Date: "2026-03-01"})
	b2 := envelope.NewRequest("u2", envelope.TierPro, envelope.BriefingPayload{Date: "2026-03-01"})
	if Key(b1) == Key(b2) {
		t.Error("briefing keys must differ per user")
	}

	// Section contents must never collide with a different section split.
	s1 := envelope.NewRequest("u1", envelope.TierPro, envelope.BriefingPayload{Date: "2026-08-30", Sections: []string{"a,b"}})
	s2 := envelope.NewRequest("u1", envelope.TierPro, envelope.BriefingPayload{Date: "2026-08-30", Sections: []string{"a", "b"}})
	if Key(s1) == Key(s2) {
		t.Errorf("distinct payloads collide: %s", Key(s1))
	}
}
