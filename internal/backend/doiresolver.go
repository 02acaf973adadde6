package backend

import (
	"fmt"
	"net/http"

	"github.com/segmentio/encoding/json"
)

// NewDOIResolver builds the doi.org content-negotiated resolver backend.
// It is the one backend spec.md marks RequiresDOI: it has no useful title
// query shape, so it is invoked only during the inline DOI pass (spec.md
// 4.7 step 5), never dispatched as a drainer job.
func NewDOIResolver(client *http.Client) Backend {
	return &httpBackend{
		name:   "DOI Resolver",
		client: client,
		doiURL: func(doi string) string {
			return fmt.Sprintf("https://doi.org/%s", escapeQuery(doi))
		},
		parseDOI: parseDOIResolver,
	}
}

type doiResolverAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

func (a doiResolverAuthor) name() string {
	if a.Given == "" {
		return a.Family
	}
	return a.Given + " " + a.Family
}

type doiResolverResponse struct {
	Title   []string            `json:"title"`
	Author  []doiResolverAuthor `json:"author"`
	URL     string              `json:"URL"`
	Updates []struct {
		DOI   string `json:"DOI"`
		Label string `json:"label"`
	} `json:"update-to"`
}

func parseDOIResolver(body []byte, _ string) (QueryOutcome, bool) {
	if len(body) == 0 {
		return QueryOutcome{}, false
	}
	var resp doiResolverResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Title) == 0 {
		return QueryOutcome{}, false
	}
	authors := make([]string, 0, len(resp.Author))
	for _, a := range resp.Author {
		authors = append(authors, a.name())
	}
	out := QueryOutcome{Matched: true, FoundTitle: resp.Title[0], Authors: authors, PaperURL: resp.URL}
	for _, u := range resp.Updates {
		if u.Label == "retraction" {
			out.Retraction = &RetractionRecord{RetractionDOI: u.DOI, Source: "DOI Resolver"}
			break
		}
	}
	return out, true
}
