package engine

import (
	"context"
	"errors"
	"time"

	"github.com/weinshel/hallucinator/internal/authormatch"
	"github.com/weinshel/hallucinator/internal/backend"
	"github.com/weinshel/hallucinator/internal/collector"
	"github.com/weinshel/hallucinator/internal/model"
	"github.com/weinshel/hallucinator/internal/normalize"
	"github.com/weinshel/hallucinator/internal/querycache"
	"github.com/weinshel/hallucinator/internal/retraction"
)

// classifyError maps a Backend query error to a DbResultStatus, whether it
// belongs in failed_dbs (spec.md 4.12: transient failures are retry-pass
// eligible, permanent 4xx errors are not), and any suggested rate-limit
// wait.
func classifyError(err error) (status collector.DbResultStatus, retryEligible bool, wait time.Duration) {
	if err == nil {
		return collector.DbNoMatch, false, 0
	}
	var qerr *backend.QueryError
	if errors.As(err, &qerr) {
		switch qerr.Kind {
		case backend.ErrRateLimited:
			return collector.DbRateLimited, false, qerr.SuggestedWait
		case backend.ErrTimeout:
			return collector.DbTimeout, true, 0
		case backend.ErrPermanent:
			return collector.DbError, false, 0
		default: // ErrTransport
			return collector.DbError, true, 0
		}
	}
	return collector.DbError, true, 0
}

// authorVerdict applies spec.md 4.2's validator, with the OpenAlex carve-out
// from spec.md section 6: when CheckOpenAlexAuthors is false, an OpenAlex
// mismatch never downgrades the aggregated status.
func (e *Engine) authorVerdict(backendName string, ref model.Reference, outcome backend.QueryOutcome) authormatch.Verdict {
	titleScore := normalize.Similarity(normalize.Title(ref.Title), normalize.Title(outcome.FoundTitle))
	verdict := authormatch.Validate(ref.Authors, outcome.Authors, titleScore, e.cfg.NearExactTitleThreshold)
	if backendName == "OpenAlex" && !e.cfg.CheckOpenAlexAuthors && verdict == authormatch.Mismatch {
		return authormatch.Match
	}
	return verdict
}

// retractionPtr extracts an inline retraction record from a query outcome,
// or nil if none was present.
func retractionPtr(backendName string, outcome backend.QueryOutcome) *retraction.Info {
	info, ok := retraction.FromOutcome(backendName, outcome)
	if !ok {
		return nil
	}
	return &info
}

// cacheOutcome stores a completed (non-transient) query outcome, per
// spec.md 4.4: only the outcome of a completed query is cached.
func (e *Engine) cacheOutcome(ctx context.Context, backendName, title string, outcome backend.QueryOutcome) {
	if e.cache == nil {
		return
	}
	class := querycache.Negative
	if outcome.Matched {
		class = querycache.Positive
	}
	entry := querycache.Entry{
		FoundTitle: outcome.FoundTitle,
		Authors:    outcome.Authors,
		PaperURL:   outcome.PaperURL,
		Class:      class,
		InsertedAt: time.Now(),
	}
	if outcome.Retraction != nil {
		entry.Retracted = true
		entry.RetractionDOI = outcome.Retraction.RetractionDOI
	}
	_ = e.cache.Insert(ctx, backendName, normalize.Title(title), entry)
}

// cacheLookup checks the two-tier cache for (backendName, title), returning
// a synthetic QueryOutcome on hit.
func (e *Engine) cacheLookup(ctx context.Context, backendName, title string) (backend.QueryOutcome, bool) {
	if e.cache == nil {
		return backend.QueryOutcome{}, false
	}
	entry, ok := e.cache.Lookup(ctx, backendName, normalize.Title(title))
	if !ok {
		return backend.QueryOutcome{}, false
	}
	out := backend.QueryOutcome{
		Matched:    entry.Class == querycache.Positive,
		FoundTitle: entry.FoundTitle,
		Authors:    entry.Authors,
		PaperURL:   entry.PaperURL,
	}
	if entry.Retracted {
		out.Retraction = &backend.RetractionRecord{RetractionDOI: entry.RetractionDOI, Source: backendName}
	}
	return out, true
}
