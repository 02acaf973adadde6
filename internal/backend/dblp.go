package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/segmentio/encoding/json"

	"github.com/weinshel/hallucinator/internal/normalize"
)

// NewDBLPOnline builds the DBLP publication search API backend.
func NewDBLPOnline(client *http.Client) Backend {
	return &httpBackend{
		name:   "DBLP",
		client: client,
		titleURL: func(title string) string {
			return fmt.Sprintf("https://dblp.org/search/publ/api?q=%s&format=json&h=5", escapeQuery(title))
		},
		parseTitle: parseDBLPList,
	}
}

type dblpInfo struct {
	Title   string `json:"title"`
	DOI     string `json:"doi"`
	Authors struct {
		Author json.RawMessage `json:"author"`
	} `json:"authors"`
}

type dblpHit struct {
	Info dblpInfo `json:"info"`
}

type dblpResponse struct {
	Result struct {
		Hits struct {
			Hit []dblpHit `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

// dblpAuthors tolerates DBLP's inconsistent author encoding: a single
// author is a bare object, multiple authors are an array of objects.
func dblpAuthors(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.Text != "" {
		return []string{single.Text}
	}
	var many []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &many); err == nil {
		out := make([]string, 0, len(many))
		for _, a := range many {
			out = append(out, a.Text)
		}
		return out
	}
	return nil
}

func parseDBLPList(body []byte, title string, _ []string) (QueryOutcome, bool) {
	if len(body) == 0 {
		return QueryOutcome{}, false
	}
	var resp dblpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return QueryOutcome{}, false
	}
	for _, h := range resp.Result.Hits.Hit {
		if normalize.Matches(title, h.Info.Title, normalize.VerifiedThreshold) {
			return QueryOutcome{
				Matched:    true,
				FoundTitle: h.Info.Title,
				Authors:    dblpAuthors(h.Info.Authors.Author),
				PaperURL:   h.Info.DOI,
			}, true
		}
	}
	return QueryOutcome{}, false
}

// NewDBLPOffline builds the offline, locally-indexed variant of DBLP: a
// sqlite mirror consumed read-only, in the register of ckit's
// IdentifierDatabase/OciDatabase sqlx.DB fields. It is a local backend
// (spec.md 4.5): called inline by the coordinator, never via a drainer.
func NewDBLPOffline(db *sqlx.DB) Backend {
	return &offlineTitleIndex{name: "DBLP (offline)", db: db}
}

// offlineTitleIndex is the shared shape for every sqlite-backed local
// backend: a single lookup table (title, doi, authors_json), queried by
// exact normalised-title equality since the index was built with the same
// normaliser as the engine runs at query time.
type offlineTitleIndex struct {
	name string
	db   *sqlx.DB
}

func (o *offlineTitleIndex) Name() string      { return o.name }
func (o *offlineTitleIndex) IsLocal() bool     { return true }
func (o *offlineTitleIndex) RequiresDOI() bool { return false }

type offlineRow struct {
	Title       string `db:"title"`
	DOI         string `db:"doi"`
	AuthorsJSON string `db:"authors_json"`
}

func (o *offlineTitleIndex) QueryByTitle(ctx context.Context, title string, _ []string) (QueryOutcome, error) {
	normalised := normalize.Title(title)
	var row offlineRow
	err := o.db.GetContext(ctx, &row, `SELECT title, doi, authors_json FROM papers WHERE normalised_title = ?`, normalised)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QueryOutcome{}, nil
		}
		return QueryOutcome{}, TransportError(err)
	}
	var authors []string
	_ = json.Unmarshal([]byte(row.AuthorsJSON), &authors)
	return QueryOutcome{Matched: true, FoundTitle: row.Title, Authors: authors, PaperURL: row.DOI}, nil
}

func (o *offlineTitleIndex) QueryByDOI(ctx context.Context, doi string) (QueryOutcome, error) {
	var row offlineRow
	err := o.db.GetContext(ctx, &row, `SELECT title, doi, authors_json FROM papers WHERE doi = ?`, doi)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QueryOutcome{}, nil
		}
		return QueryOutcome{}, TransportError(err)
	}
	var authors []string
	_ = json.Unmarshal([]byte(row.AuthorsJSON), &authors)
	return QueryOutcome{Matched: true, FoundTitle: row.Title, Authors: authors, PaperURL: row.DOI}, nil
}
