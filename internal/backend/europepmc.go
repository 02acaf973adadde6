package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/weinshel/hallucinator/internal/normalize"
)

// NewEuropePMC builds the Europe PMC REST API backend.
func NewEuropePMC(client *http.Client) Backend {
	return &httpBackend{
		name:   "Europe PMC",
		client: client,
		titleURL: func(title string) string {
			return fmt.Sprintf("https://www.ebi.ac.uk/europepmc/webservices/rest/search?query=TITLE:%%22%s%%22&format=json", escapeQuery(title))
		},
		doiURL: func(doi string) string {
			return fmt.Sprintf("https://www.ebi.ac.uk/europepmc/webservices/rest/search?query=DOI:%%22%s%%22&format=json", escapeQuery(doi))
		},
		parseTitle: parseEuropePMCList,
		parseDOI:   parseEuropePMCOne,
	}
}

type europePMCResult struct {
	Title        string `json:"title"`
	AuthorString string `json:"authorString"`
	DOI          string `json:"doi"`
	IsRetracted  string `json:"isRetracted"` // "Y" / "N"
}

func (r europePMCResult) authors() []string {
	if r.AuthorString == "" {
		return nil
	}
	parts := strings.Split(r.AuthorString, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r europePMCResult) outcome() QueryOutcome {
	// Europe PMC's own IsRetracted flag is not surfaced here: retraction
	// records are scoped to the DOI-bearing backend alone (see backend.go).
	return QueryOutcome{Matched: true, FoundTitle: r.Title, Authors: r.authors(), PaperURL: r.DOI}
}

type europePMCResponse struct {
	ResultList struct {
		Result []europePMCResult `json:"result"`
	} `json:"resultList"`
}

func parseEuropePMCList(body []byte, title string, _ []string) (QueryOutcome, bool) {
	if len(body) == 0 {
		return QueryOutcome{}, false
	}
	var resp europePMCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return QueryOutcome{}, false
	}
	for _, r := range resp.ResultList.Result {
		if normalize.Matches(title, r.Title, normalize.VerifiedThreshold) {
			return r.outcome(), true
		}
	}
	return QueryOutcome{}, false
}

// parseEuropePMCOne is used for DOI lookups, where any single returned
// result is treated as authoritative rather than requiring a title match.
func parseEuropePMCOne(body []byte, _ string) (QueryOutcome, bool) {
	if len(body) == 0 {
		return QueryOutcome{}, false
	}
	var resp europePMCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return QueryOutcome{}, false
	}
	if len(resp.ResultList.Result) == 0 {
		return QueryOutcome{}, false
	}
	return resp.ResultList.Result[0].outcome(), true
}
