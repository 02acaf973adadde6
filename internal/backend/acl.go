package backend

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/segmentio/encoding/json"

	"github.com/weinshel/hallucinator/internal/normalize"
)

// NewACLOnline builds a backend against the ACL Anthology's public search,
// modelled loosely on its OpenSearch-style JSON endpoint.
func NewACLOnline(client *http.Client) Backend {
	return &httpBackend{
		name:   "ACL Anthology",
		client: client,
		titleURL: func(title string) string {
			return fmt.Sprintf("https://aclanthology.org/api/search?q=%s", escapeQuery(title))
		},
		parseTitle: parseACLList,
	}
}

type aclPaper struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	URL     string   `json:"url"`
}

type aclResponse struct {
	Papers []aclPaper `json:"papers"`
}

func parseACLList(body []byte, title string, _ []string) (QueryOutcome, bool) {
	if len(body) == 0 {
		return QueryOutcome{}, false
	}
	var resp aclResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return QueryOutcome{}, false
	}
	for _, p := range resp.Papers {
		if normalize.Matches(title, p.Title, normalize.VerifiedThreshold) {
			return QueryOutcome{Matched: true, FoundTitle: p.Title, Authors: p.Authors, PaperURL: p.URL}, true
		}
	}
	return QueryOutcome{}, false
}

// NewACLOffline builds the offline, sqlite-indexed variant of the ACL
// Anthology backend, sharing offlineTitleIndex with NewDBLPOffline.
func NewACLOffline(db *sqlx.DB) Backend {
	return &offlineTitleIndex{name: "ACL Anthology (offline)", db: db}
}
