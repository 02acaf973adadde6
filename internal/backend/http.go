package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/segmentio/encoding/json"
)

// httpBackend is the shared request/response plumbing for every remote
// academic-database adapter: build a query URL, issue it through the
// shared client, classify the outcome, and hand the decoded JSON body to
// a backend-specific parser. Each concrete backend supplies only the
// URL-building and parsing closures, the way ckit's Server delegates
// storage-specific work to whatever concrete Fetcher it's holding.
type httpBackend struct {
	name        string
	client      *http.Client
	titleURL    func(title string) string
	doiURL      func(doi string) string
	parseTitle  func(body []byte, title string, authors []string) (QueryOutcome, bool)
	parseDOI    func(body []byte, doi string) (QueryOutcome, bool)
	extraHeader map[string]string
}

func (b *httpBackend) Name() string       { return b.name }
func (b *httpBackend) IsLocal() bool      { return false }
func (b *httpBackend) RequiresDOI() bool  { return b.titleURL == nil }

func (b *httpBackend) QueryByTitle(ctx context.Context, title string, authors []string) (QueryOutcome, error) {
	if b.titleURL == nil {
		return QueryOutcome{}, nil
	}
	body, err := b.get(ctx, b.titleURL(title))
	if err != nil {
		return QueryOutcome{}, err
	}
	out, _ := b.parseTitle(body, title, authors)
	return out, nil
}

func (b *httpBackend) QueryByDOI(ctx context.Context, doi string) (QueryOutcome, error) {
	if b.doiURL == nil {
		return QueryOutcome{}, nil
	}
	body, err := b.get(ctx, b.doiURL(doi))
	if err != nil {
		return QueryOutcome{}, err
	}
	out, _ := b.parseDOI(body, doi)
	return out, nil
}

func (b *httpBackend) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, TransportError(err)
	}
	for k, v := range b.extraHeader {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, TimeoutError(err)
		}
		return nil, TransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, RateLimitedError(retryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, TimeoutError(fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, TransportError(fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode >= 400:
		return nil, PermanentError(fmt.Errorf("status %d", resp.StatusCode))
	}

	var buf []byte
	buf, err = readAll(resp)
	if err != nil {
		return nil, TransportError(err)
	}
	return buf, nil
}

func readAll(resp *http.Response) ([]byte, error) {
	dec := json.NewDecoder(resp.Body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func escapeQuery(title string) string {
	return url.QueryEscape(title)
}
