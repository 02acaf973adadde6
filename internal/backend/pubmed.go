package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/weinshel/hallucinator/internal/normalize"
)

// NewPubMed builds the PubMed backend against NCBI's E-utilities: an
// esearch call resolves a title to a set of PMIDs, then esummary fetches
// their metadata. Two round trips per query, unlike the single-call
// backends above.
func NewPubMed(client *http.Client) Backend {
	return &pubmedBackend{client: client}
}

type pubmedBackend struct {
	client *http.Client
}

func (b *pubmedBackend) Name() string      { return "PubMed" }
func (b *pubmedBackend) IsLocal() bool     { return false }
func (b *pubmedBackend) RequiresDOI() bool { return false }

type eutilsSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type eutilsSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedDocSummary struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ELocationID string `json:"elocationid"`
}

func (d pubmedDocSummary) authors() []string {
	out := make([]string, 0, len(d.Authors))
	for _, a := range d.Authors {
		out = append(out, a.Name)
	}
	return out
}

func (b *pubmedBackend) request(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, TransportError(err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, TimeoutError(err)
		}
		return nil, TransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, RateLimitedError(retryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode >= 500 {
		return nil, TransportError(fmt.Errorf("status %d", resp.StatusCode))
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, TransportError(err)
	}
	return raw, nil
}

func (b *pubmedBackend) QueryByTitle(ctx context.Context, title string, _ []string) (QueryOutcome, error) {
	searchURL := fmt.Sprintf("https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi?db=pubmed&retmode=json&term=%s%%5BTitle%%5D", escapeQuery(title))
	body, err := b.request(ctx, searchURL)
	if err != nil {
		return QueryOutcome{}, err
	}
	var search eutilsSearchResponse
	if err := json.Unmarshal(body, &search); err != nil || len(search.ESearchResult.IDList) == 0 {
		return QueryOutcome{}, nil
	}

	summaryURL := fmt.Sprintf("https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi?db=pubmed&retmode=json&id=%s", strings.Join(search.ESearchResult.IDList, ","))
	body, err = b.request(ctx, summaryURL)
	if err != nil {
		return QueryOutcome{}, err
	}
	var summary eutilsSummaryResponse
	if err := json.Unmarshal(body, &summary); err != nil {
		return QueryOutcome{}, nil
	}
	for id, raw := range summary.Result {
		if id == "uids" {
			continue
		}
		var doc pubmedDocSummary
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if normalize.Matches(title, doc.Title, normalize.VerifiedThreshold) {
			return QueryOutcome{Matched: true, FoundTitle: doc.Title, Authors: doc.authors(), PaperURL: doc.ELocationID}, nil
		}
	}
	return QueryOutcome{}, nil
}

func (b *pubmedBackend) QueryByDOI(context.Context, string) (QueryOutcome, error) {
	return QueryOutcome{}, nil
}
