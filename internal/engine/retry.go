package engine

import (
	"github.com/weinshel/hallucinator/internal/collector"
	"github.com/weinshel/hallucinator/internal/model"
)

// retryPass implements spec.md 4.10: for every reference that finalised as
// NotFound or AuthorMismatch with a non-empty failed_dbs set, re-submit a
// job to exactly those backends and fold the upgraded result back into
// outputs at the same index. A retried backend that now matches can
// upgrade either terminal status to Verified (mergeRetryResult). refs is
// the original input batch, indexed the same way as outputs.
func (e *Engine) retryPass(outputs []model.ValidationResult, refs []model.Reference, cancel CancelSignal, progress model.ProgressFunc, total int) {
	type pending struct {
		idx      int
		col      *collector.RefCollector
		backends []string
	}

	var work []pending
	for i, out := range outputs {
		if len(out.FailedDbs) == 0 {
			continue
		}
		if out.Status != model.StatusNotFound && out.Status != model.StatusAuthorMismatch {
			continue
		}
		work = append(work, pending{idx: i})
	}

	progress(model.RetryPass{Count: len(work)})
	if len(work) == 0 {
		return
	}

	byName := make(map[string]chan drainerJob, len(e.remoteBackends))
	for _, b := range e.remoteBackends {
		byName[b.Name()] = e.drainerChans[b.Name()]
	}

	for i := range work {
		p := &work[i]
		out := outputs[p.idx]
		p.backends = out.FailedDbs
		p.col = collector.New(out.Index, len(p.backends))

		ref := refs[p.idx]
		for _, name := range p.backends {
			ch, ok := byName[name]
			if !ok {
				p.col.Decrement()
				continue
			}
			ch <- drainerJob{ref: ref, col: p.col, progress: progress, isRetry: true}
		}
	}

	for _, p := range work {
		res := <-p.col.Done()
		outputs[p.idx] = mergeRetryResult(outputs[p.idx], res)
	}
}

// mergeRetryResult replaces the retried backends' DbResult slots in prev
// with the retry pass's outcome and, if the retry produced a verified
// status, upgrades prev to Verified. Any other retry status leaves prev's
// status as it was; it never downgrades a non-NotFound status.
func mergeRetryResult(prev model.ValidationResult, retry collector.Result) model.ValidationResult {
	retried := make(map[string]bool, len(retry.DbResults))
	for _, d := range retry.DbResults {
		retried[d.Backend] = true
	}

	merged := make([]model.DbResult, 0, len(prev.DbResults))
	for _, d := range prev.DbResults {
		if retried[d.Backend] {
			continue
		}
		merged = append(merged, d)
	}
	for _, d := range retry.DbResults {
		merged = append(merged, model.DbResult{
			Backend:         d.Backend,
			Status:          model.DbResultStatus(d.Status),
			ElapsedMs:       d.ElapsedMs,
			FoundTitle:      d.FoundTitle,
			ReturnedAuthors: d.Authors,
			PaperURL:        d.PaperURL,
		})
	}
	prev.DbResults = merged

	if retry.Status == collector.StatusVerified {
		prev.Status = model.StatusVerified
		prev.Source = retry.Source
		prev.FoundAuthors = retry.FoundAuthors
		prev.PaperURL = retry.PaperURL
		prev.FailedDbs = nil
		if retry.Retraction.IsRetracted {
			prev.RetractionInfo = model.RetractionInfo{
				IsRetracted:   true,
				RetractionDOI: retry.Retraction.RetractionDOI,
				Source:        retry.Retraction.Source,
			}
		}
		if d, ok := findMatch(retry.DbResults, "DOI Resolver"); ok {
			prev.DOIInfo.Valid = true
			prev.DOIInfo.ResolvedTitle = d.FoundTitle
		}
		if d, ok := findMatch(retry.DbResults, "arXiv"); ok {
			prev.ArxivInfo.Valid = true
			prev.ArxivInfo.ResolvedTitle = d.FoundTitle
		}
		return prev
	}

	// No new verification: drop the retried backends from failed_dbs
	// (they produced a terminal, non-transient outcome this time) but
	// otherwise leave the NotFound/AuthorMismatch status untouched.
	var remaining []string
	for _, name := range prev.FailedDbs {
		if !retried[name] {
			remaining = append(remaining, name)
		}
	}
	prev.FailedDbs = remaining
	return prev
}
