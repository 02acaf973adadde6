package engine

import (
	"context"
	"time"

	"github.com/weinshel/hallucinator/internal/authormatch"
	"github.com/weinshel/hallucinator/internal/backend"
	"github.com/weinshel/hallucinator/internal/collector"
	"github.com/weinshel/hallucinator/internal/model"
	"github.com/weinshel/hallucinator/internal/ratelimit"
)

// drainerJob is one unit of work sent to a backend's drainer channel,
// either from the main coordinator pass or the retry pass.
type drainerJob struct {
	ref      model.Reference
	col      *collector.RefCollector
	progress model.ProgressFunc
	isRetry  bool
}

// drainLoop is the sole consumer of a single remote backend's job channel
// and rate-limit slot, per spec.md 4.8.
func (e *Engine) drainLoop(b backend.Backend, jobs chan drainerJob, cancel CancelSignal, defaultProgress model.ProgressFunc) {
	limiter := e.limiters[b.Name()]

	for job := range jobs {
		progress := job.progress
		if progress == nil {
			progress = defaultProgress
		}
		e.drainOne(b, job, limiter, cancel, progress)
	}
}

func (e *Engine) drainOne(b backend.Backend, job drainerJob, limiter *ratelimit.Adaptive, cancel CancelSignal, progress model.ProgressFunc) {
	ref := job.ref
	col := job.col

	if cancel.IsSet() {
		col.ReportOutcome(b.Name(), collector.DbSkipped, 0, "", nil, "", nil, false, true)
		return
	}

	if col.Verified() {
		if outcome, ok := e.cacheLookup(context.Background(), b.Name(), ref.Title); ok {
			col.RecordCacheHit(b.Name(), outcome.Matched, outcome.FoundTitle, outcome.Authors, outcome.PaperURL, retractionPtr(b.Name(), outcome))
		}
		col.ReportOutcome(b.Name(), collector.DbSkipped, 0, "", nil, "", nil, false, true)
		return
	}

	if b.RequiresDOI() && ref.DOI == "" {
		col.ReportOutcome(b.Name(), collector.DbSkipped, 0, "", nil, "", nil, false, true)
		return
	}

	// The retry pass dispatches only backends whose slot was a transient
	// failure (timeout/error) on the main pass, which spec.md 4.10 says
	// were never cached — so a retry job always goes straight to query,
	// never through the cache.

	attempt := 0
	for {
		waited, err := limiter.Acquire(context.Background())
		if err != nil {
			col.ReportOutcome(b.Name(), collector.DbSkipped, 0, "", nil, "", nil, false, true)
			return
		}
		if waited > time.Second {
			progress(model.RateLimitWait{Backend: b.Name(), Wait: waited})
		}

		qctx, qcancel := context.WithTimeout(context.Background(), e.cfg.DbTimeout)
		start := time.Now()
		outcome, qerr := b.QueryByTitle(qctx, ref.Title, ref.Authors)
		elapsed := time.Since(start).Milliseconds()
		qcancel()

		if qerr != nil {
			status, retryEligible, wait := classifyError(qerr)
			if status == collector.DbRateLimited {
				attempt++
				limiter.OnRateLimited()
				if attempt <= e.cfg.MaxRateLimitRetries {
					if wait > 0 {
						time.Sleep(wait)
					}
					progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: b.Name(), Status: model.DbStatusRateLimited, ElapsedMs: elapsed})
					continue
				}
			}
			col.ReportOutcome(b.Name(), status, elapsed, "", nil, "", nil, retryEligible, true)
			progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: b.Name(), Status: model.DbResultStatus(status), ElapsedMs: elapsed})
			return
		}

		limiter.OnSuccess()

		if !outcome.Matched {
			col.ReportOutcome(b.Name(), collector.DbNoMatch, elapsed, "", nil, "", nil, false, true)
			e.cacheOutcome(context.Background(), b.Name(), ref.Title, outcome)
			progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: b.Name(), Status: model.DbStatusNoMatch, ElapsedMs: elapsed})
			return
		}

		verdict := e.authorVerdict(b.Name(), ref, outcome)
		rec := retractionPtr(b.Name(), outcome)
		e.cacheOutcome(context.Background(), b.Name(), ref.Title, outcome)

		if verdict == authormatch.Mismatch {
			col.ReportOutcome(b.Name(), collector.DbAuthorMismatch, elapsed, outcome.FoundTitle, outcome.Authors, outcome.PaperURL, rec, false, true)
			progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: b.Name(), Status: model.DbStatusAuthorMismatch, ElapsedMs: elapsed})
			return
		}
		col.ReportOutcome(b.Name(), collector.DbMatch, elapsed, outcome.FoundTitle, outcome.Authors, outcome.PaperURL, rec, false, true)
		progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: b.Name(), Status: model.DbStatusMatch, ElapsedMs: elapsed})
		return
	}
}
