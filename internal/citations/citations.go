// Package citations resolves page titles for citation URLs returned by
// search-backed providers.
package citations

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/soen-app/praxis/pkg/logger"
)

const (
	fetchTimeout = 5 * time.Second
	maxParallel  = 4
	maxTitleLen  = 200
)

// Resolver fetches cited pages and extracts their <title>. Lookups are best
// effort: an unreachable or title-less page just stays untitled.
type Resolver struct {
	client *http.Client
	log    *logger.Logger
}

// NewResolver builds a resolver with a bounded-timeout HTTP client.
func NewResolver() *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: fetchTimeout},
		log:    logger.NewComponentLogger("citations"),
	}
}

// Titles resolves titles for the given URLs in parallel and returns a map of
// URL to title. URLs that could not be resolved are absent from the map.
func (r *Resolver) Titles(ctx context.Context, urls []string) map[string]string {
	titles := make(map[string]string, len(urls))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxParallel)

	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			title, err := r.fetchTitle(ctx, url)
			if err != nil {
				r.log.Debug("citation title lookup failed", "url", url, "error", err)
				return
			}
			if title == "" {
				return
			}
			mu.Lock()
			titles[url] = title
			mu.Unlock()
		}(url)
	}
	wg.Wait()
	return titles
}

func (r *Resolver) fetchTitle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "praxis-citations/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		// Fall back to the OpenGraph title some pages carry instead.
		title, _ = doc.Find(`meta[property="og:title"]`).First().Attr("content")
		title = strings.TrimSpace(title)
	}
	return truncateTitle(title), nil
}

// truncateTitle caps a title at maxTitleLen bytes without splitting a rune.
func truncateTitle(title string) string {
	if len(title) <= maxTitleLen {
		return title
	}
	cut := maxTitleLen
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	return title[:cut]
}
