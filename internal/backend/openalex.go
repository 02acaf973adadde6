package backend

import (
	"fmt"
	"net/http"

	"github.com/segmentio/encoding/json"

	"github.com/weinshel/hallucinator/internal/normalize"
)

// NewOpenAlex builds the OpenAlex backend. email is optional; when set it
// is sent as OpenAlex's "mailto" polite-pool parameter. engine.New passes
// Config.OpenAlexKey here and only constructs OpenAlex when that key is
// set; the orchestrator then places it first in the fixed assembly order
// (spec.md 4.6: "OpenAlex if keyed").
func NewOpenAlex(client *http.Client, email string) Backend {
	mailto := ""
	if email != "" {
		mailto = "&mailto=" + escapeQuery(email)
	}
	return &httpBackend{
		name:   "OpenAlex",
		client: client,
		titleURL: func(title string) string {
			return fmt.Sprintf("https://api.openalex.org/works?search=%s%s", escapeQuery(title), mailto)
		},
		doiURL: func(doi string) string {
			return fmt.Sprintf("https://api.openalex.org/works/https://doi.org/%s%s", escapeQuery(doi), mailto)
		},
		parseTitle: parseOpenAlexList,
		parseDOI:   parseOpenAlexOne,
	}
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexWork struct {
	Title         string               `json:"title"`
	DOI           string               `json:"doi"`
	Authorships   []openAlexAuthorship `json:"authorships"`
	IsRetracted   bool                 `json:"is_retracted"`
}

type openAlexListResponse struct {
	Results []openAlexWork `json:"results"`
}

func (w openAlexWork) authors() []string {
	out := make([]string, 0, len(w.Authorships))
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			out = append(out, a.Author.DisplayName)
		}
	}
	return out
}

func (w openAlexWork) outcome() QueryOutcome {
	// OpenAlex's own IsRetracted flag is not surfaced here: retraction
	// records are scoped to the DOI-bearing backend alone (see backend.go).
	return QueryOutcome{
		Matched:    true,
		FoundTitle: w.Title,
		Authors:    w.authors(),
		PaperURL:   w.DOI,
	}
}

func parseOpenAlexList(body []byte, title string, _ []string) (QueryOutcome, bool) {
	if len(body) == 0 {
		return QueryOutcome{}, false
	}
	var resp openAlexListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return QueryOutcome{}, false
	}
	for _, w := range resp.Results {
		if normalize.Matches(title, w.Title, normalize.VerifiedThreshold) {
			return w.outcome(), true
		}
	}
	return QueryOutcome{}, false
}

func parseOpenAlexOne(body []byte, _ string) (QueryOutcome, bool) {
	if len(body) == 0 {
		return QueryOutcome{}, false
	}
	var w openAlexWork
	if err := json.Unmarshal(body, &w); err != nil {
		return QueryOutcome{}, false
	}
	if w.Title == "" {
		return QueryOutcome{}, false
	}
	return w.outcome(), true
}
