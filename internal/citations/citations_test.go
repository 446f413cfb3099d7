package citations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateTitleKeepsRunesWhole(t *testing.T) {
	// 100 two-byte runes straddle the byte cap mid-rune.
	long := strings.Repeat("é", maxTitleLen/2+50)
	got := truncateTitle(long)
	if len(got) > maxTitleLen {
		t.Errorf("truncated title is %d bytes, cap is %d", len(got), maxTitleLen)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune: %q", got[len(got)-4:])
	}

	short := "Go Release Notes"
	if truncateTitle(short) != short {
		t.Errorf("short title must pass through unchanged")
	}
}

func TestTitlesResolvesAndFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/titled":
			_, _ = w.Write([]byte(`<html><head><title> Go Blog </title></head></html>`))
		case "/og":
			_, _ = w.Write([]byte(`<html><head><meta property="og:title" content="OG Page"></head></html>`))
		default:
			_, _ = w.Write([]byte(`<html><head></head></html>`))
		}
	}))
	defer srv.Close()

	r := NewResolver()
	titles := r.Titles(context.Background(), []string{
		srv.URL + "/titled",
		srv.URL + "/og",
		srv.URL + "/untitled",
	})

	if titles[srv.URL+"/titled"] != "Go Blog" {
		t.Errorf("expected trimmed <title>, got %q", titles[srv.URL+"/titled"])
	}
	if titles[srv.URL+"/og"] != "OG Page" {
		t.Errorf("expected og:title fallback, got %q", titles[srv.URL+"/og"])
	}
	if _, ok := titles[srv.URL+"/untitled"]; ok {
		t.Error("title-less pages must be absent from the map")
	}
}
