package backend

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/weinshel/hallucinator/internal/normalize"
)

// NewArxiv builds the arXiv backend. arXiv's export API replies in Atom
// XML rather than JSON, so this adapter bypasses httpBackend's JSON
// decoding and does its own round trip.
func NewArxiv(client *http.Client) Backend {
	return &arxivBackend{client: client}
}

type arxivBackend struct {
	client *http.Client
}

func (b *arxivBackend) Name() string      { return "arXiv" }
func (b *arxivBackend) IsLocal() bool     { return false }
func (b *arxivBackend) RequiresDOI() bool { return false }

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string        `xml:"id"`
	Title   string        `xml:"title"`
	Authors []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

func (e arxivEntry) authors() []string {
	out := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		out = append(out, a.Name)
	}
	return out
}

func (b *arxivBackend) do(ctx context.Context, rawURL string) (arxivFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return arxivFeed{}, TransportError(err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return arxivFeed{}, TimeoutError(err)
		}
		return arxivFeed{}, TransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return arxivFeed{}, RateLimitedError(retryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode >= 500 {
		return arxivFeed{}, TransportError(fmt.Errorf("status %d", resp.StatusCode))
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return arxivFeed{}, TransportError(err)
	}
	return feed, nil
}

func (b *arxivBackend) QueryByTitle(ctx context.Context, title string, _ []string) (QueryOutcome, error) {
	rawURL := fmt.Sprintf("https://export.arxiv.org/api/query?search_query=ti:%%22%s%%22&max_results=5", escapeQuery(title))
	feed, err := b.do(ctx, rawURL)
	if err != nil {
		return QueryOutcome{}, err
	}
	for _, e := range feed.Entries {
		t := strings.TrimSpace(e.Title)
		if normalize.Matches(title, t, normalize.VerifiedThreshold) {
			return QueryOutcome{Matched: true, FoundTitle: t, Authors: e.authors(), PaperURL: e.ID}, nil
		}
	}
	return QueryOutcome{}, nil
}

func (b *arxivBackend) QueryByDOI(context.Context, string) (QueryOutcome, error) {
	return QueryOutcome{}, nil
}
