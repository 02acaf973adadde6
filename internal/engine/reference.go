package engine

import (
	"context"
	"time"

	"github.com/weinshel/hallucinator/internal/authormatch"
	"github.com/weinshel/hallucinator/internal/backend"
	"github.com/weinshel/hallucinator/internal/collector"
	"github.com/weinshel/hallucinator/internal/model"
)

// processReference is a coordinator's lifecycle for a single reference, per
// spec.md section 4.7.
func (e *Engine) processReference(ctx context.Context, ref model.Reference, cancel CancelSignal, progress model.ProgressFunc, total int) model.ValidationResult {
	if ref.SkipReason != "" {
		out := model.ValidationResult{Index: ref.Index, Status: model.StatusSkipped}
		progress(model.Result{Index: ref.Index, Total: total, Value: out})
		return out
	}

	progress(model.Checking{Index: ref.Index, Total: total, Title: ref.Title})

	col := collector.New(ref.Index, 0)

	if cancel.IsSet() {
		return e.finalizeCancelled(ref, col, progress, total)
	}

	for _, b := range e.localBackends {
		if cancel.IsSet() {
			break
		}
		if e.runLocalQuery(ctx, b, ref, col, progress) {
			return e.finalize(ref, col, progress, total)
		}
	}

	if ref.DOI != "" && e.doiResolver != nil && !cancel.IsSet() {
		e.runDOIQuery(ctx, ref, col, progress)
	}

	dispatched := 0
	for _, b := range e.remoteBackends {
		if cancel.IsSet() {
			col.ReportOutcome(b.Name(), collector.DbSkipped, 0, "", nil, "", nil, false, false)
			continue
		}
		if outcome, ok := e.cacheLookup(ctx, b.Name(), ref.Title); ok {
			col.RecordCacheHit(b.Name(), outcome.Matched, outcome.FoundTitle, outcome.Authors, outcome.PaperURL, retractionPtr(b.Name(), outcome))
			continue
		}
		e.drainerChans[b.Name()] <- drainerJob{ref: ref, col: col, progress: progress}
		dispatched++
	}
	col.SetRemaining(dispatched)

	return e.finalize(ref, col, progress, total)
}

// runLocalQuery runs one local backend inline (spec.md 4.7 step 4). It
// reports true when the reference should short-circuit: a title match that
// also passes author validation.
func (e *Engine) runLocalQuery(ctx context.Context, b backend.Backend, ref model.Reference, col *collector.RefCollector, progress model.ProgressFunc) bool {
	qctx, cancel := context.WithTimeout(ctx, e.cfg.DbTimeoutShort)
	defer cancel()

	start := time.Now()
	outcome, err := b.QueryByTitle(qctx, ref.Title, ref.Authors)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		status, retryEligible, _ := classifyError(err)
		col.ReportOutcome(b.Name(), status, elapsed, "", nil, "", nil, retryEligible, false)
		progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: b.Name(), Status: model.DbResultStatus(status), ElapsedMs: elapsed})
		return false
	}
	if !outcome.Matched {
		col.ReportOutcome(b.Name(), collector.DbNoMatch, elapsed, "", nil, "", nil, false, false)
		e.cacheOutcome(ctx, b.Name(), ref.Title, outcome)
		progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: b.Name(), Status: model.DbStatusNoMatch, ElapsedMs: elapsed})
		return false
	}

	verdict := e.authorVerdict(b.Name(), ref, outcome)
	rec := retractionPtr(b.Name(), outcome)
	e.cacheOutcome(ctx, b.Name(), ref.Title, outcome)

	if verdict == authormatch.Mismatch {
		col.ReportOutcome(b.Name(), collector.DbAuthorMismatch, elapsed, outcome.FoundTitle, outcome.Authors, outcome.PaperURL, rec, false, false)
		progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: b.Name(), Status: model.DbStatusAuthorMismatch, ElapsedMs: elapsed})
		return false
	}
	col.ReportOutcome(b.Name(), collector.DbMatch, elapsed, outcome.FoundTitle, outcome.Authors, outcome.PaperURL, rec, false, false)
	progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: b.Name(), Status: model.DbStatusMatch, ElapsedMs: elapsed})
	col.SetRemaining(0)
	return true
}

// runDOIQuery runs the DOI resolver inline (spec.md 4.7 step 5) and feeds
// its outcome into the normal aggregation path; unlike a local match, it
// never short-circuits the remaining steps.
func (e *Engine) runDOIQuery(ctx context.Context, ref model.Reference, col *collector.RefCollector, progress model.ProgressFunc) {
	qctx, cancel := context.WithTimeout(ctx, e.cfg.DbTimeoutShort)
	defer cancel()

	name := e.doiResolver.Name()
	start := time.Now()
	outcome, err := e.doiResolver.QueryByDOI(qctx, ref.DOI)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		status, retryEligible, _ := classifyError(err)
		col.ReportOutcome(name, status, elapsed, "", nil, "", nil, retryEligible, false)
		progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: name, Status: model.DbResultStatus(status), ElapsedMs: elapsed})
		return
	}
	if !outcome.Matched {
		col.ReportOutcome(name, collector.DbNoMatch, elapsed, "", nil, "", nil, false, false)
		progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: name, Status: model.DbStatusNoMatch, ElapsedMs: elapsed})
		return
	}

	verdict := e.authorVerdict(name, ref, outcome)
	rec := retractionPtr(name, outcome)
	if verdict == authormatch.Mismatch {
		col.ReportOutcome(name, collector.DbAuthorMismatch, elapsed, outcome.FoundTitle, outcome.Authors, outcome.PaperURL, rec, false, false)
		progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: name, Status: model.DbStatusAuthorMismatch, ElapsedMs: elapsed})
		return
	}
	col.ReportOutcome(name, collector.DbMatch, elapsed, outcome.FoundTitle, outcome.Authors, outcome.PaperURL, rec, false, false)
	progress(model.DatabaseQueryComplete{RefIndex: ref.Index, Backend: name, Status: model.DbStatusMatch, ElapsedMs: elapsed})
}

// finalizeCancelled builds the all-skipped result the shutdown sequence
// requires (spec.md 4.11): every reference still produces a terminal
// result, with every slot it never got to query marked Skipped.
func (e *Engine) finalizeCancelled(ref model.Reference, col *collector.RefCollector, progress model.ProgressFunc, total int) model.ValidationResult {
	for _, b := range e.localBackends {
		col.ReportOutcome(b.Name(), collector.DbSkipped, 0, "", nil, "", nil, false, false)
	}
	if ref.DOI != "" && e.doiResolver != nil {
		col.ReportOutcome(e.doiResolver.Name(), collector.DbSkipped, 0, "", nil, "", nil, false, false)
	}
	for _, b := range e.remoteBackends {
		col.ReportOutcome(b.Name(), collector.DbSkipped, 0, "", nil, "", nil, false, false)
	}
	col.SetRemaining(0)
	return e.finalize(ref, col, progress, total)
}
