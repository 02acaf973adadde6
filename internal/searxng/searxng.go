/*
Package searxng implements the last-resort web-search fallback described
in spec.md section 4.8/4.9: when a reference would otherwise finalise as
NotFound, one query against a configured SearxNG instance can still
upgrade it to Verified (source "Web Search"), skipping author validation
since web results carry no structured author list.

Results are cached for a short, fixed TTL via patrickmn/go-cache — the
same package ckit uses for its own response cache — rather than the
two-tier querycache store, since SearxNG results are a best-effort web
signal, not an authoritative per-backend record worth persisting past a
process's lifetime.
*/
package searxng

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/segmentio/encoding/json"

	"github.com/weinshel/hallucinator/internal/normalize"
)

const (
	cacheTTL     = 10 * time.Minute
	cacheCleanup = 30 * time.Minute
)

// Fallback queries a SearxNG instance and caches results briefly.
type Fallback struct {
	baseURL string
	client  *http.Client
	cache   *gocache.Cache
}

// New builds a Fallback against baseURL (e.g. "https://searx.example.org").
// A zero-value baseURL means the fallback is unconfigured; callers should
// check Configured() before invoking Query.
func New(baseURL string, client *http.Client) *Fallback {
	return &Fallback{
		baseURL: baseURL,
		client:  client,
		cache:   gocache.New(cacheTTL, cacheCleanup),
	}
}

// Configured reports whether a SearxNG URL was supplied.
func (f *Fallback) Configured() bool {
	return f != nil && f.baseURL != ""
}

// Result is the outcome of a single SearxNG query.
type Result struct {
	Matched    bool
	FoundTitle string
	PaperURL   string
}

type searxResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"results"`
}

// Query searches for title and returns a Result if any hit fuzzy-matches
// at or above nearExactThreshold (web search lacks structured metadata, so the
// bar for accepting a hit is the near-exact threshold, not the ordinary
// verification threshold).
func (f *Fallback) Query(ctx context.Context, title string, nearExactThreshold int) (Result, error) {
	if v, ok := f.cache.Get(title); ok {
		return v.(Result), nil
	}

	rawURL := fmt.Sprintf("%s/search?q=%s&format=json", f.baseURL, url.QueryEscape(title))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("searxng: status %d", resp.StatusCode)
	}

	var body searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, err
	}

	var out Result
	for _, r := range body.Results {
		if normalize.Matches(title, r.Title, nearExactThreshold) {
			out = Result{Matched: true, FoundTitle: r.Title, PaperURL: r.URL}
			break
		}
	}
	f.cache.Set(title, out, gocache.DefaultExpiration)
	return out, nil
}

