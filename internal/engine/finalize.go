package engine

import (
	"context"

	"github.com/weinshel/hallucinator/internal/collector"
	"github.com/weinshel/hallucinator/internal/model"
)

// finalize awaits a reference's finalised collector.Result, applies the
// SearxNG last-resort upgrade (spec.md 4.9), translates it into the public
// ValidationResult shape, and emits the Warning/Result progress events.
func (e *Engine) finalize(ref model.Reference, col *collector.RefCollector, progress model.ProgressFunc, total int) model.ValidationResult {
	res := <-col.Done()

	if res.Status == collector.StatusNotFound && e.fallback.Configured() {
		sres, err := e.fallback.Query(context.Background(), ref.Title, e.cfg.NearExactTitleThreshold)
		if err == nil && sres.Matched {
			res = collector.UpgradeToWebSearch(res, sres.FoundTitle, sres.PaperURL)
		}
	}

	out := toValidationResult(ref, res)

	if len(out.FailedDbs) > 0 {
		progress(model.Warning{
			Index:     ref.Index,
			Title:     ref.Title,
			FailedDbs: out.FailedDbs,
			Message:   "one or more backends failed transiently",
		})
	}
	progress(model.Result{Index: ref.Index, Total: total, Value: out})
	return out
}

// toValidationResult translates a collector.Result — which knows nothing
// about the original Reference — into the engine's public output shape,
// populating doi_info/arxiv_info/retraction_info from the aggregated
// per-backend evidence.
func toValidationResult(ref model.Reference, res collector.Result) model.ValidationResult {
	out := model.ValidationResult{
		Index:        res.Index,
		Status:       model.Status(res.Status),
		Source:       res.Source,
		RefAuthors:   ref.Authors,
		FoundAuthors: res.FoundAuthors,
		PaperURL:     res.PaperURL,
		FailedDbs:    res.FailedDbs,
	}

	out.DbResults = make([]model.DbResult, 0, len(res.DbResults))
	for _, d := range res.DbResults {
		out.DbResults = append(out.DbResults, model.DbResult{
			Backend:         d.Backend,
			Status:          model.DbResultStatus(d.Status),
			ElapsedMs:       d.ElapsedMs,
			FoundTitle:      d.FoundTitle,
			ReturnedAuthors: d.Authors,
			PaperURL:        d.PaperURL,
		})
	}

	out.DOIInfo = model.DOIInfo{Identifier: ref.DOI}
	out.ArxivInfo = model.ArxivInfo{Identifier: ref.ArxivID}
	if ref.DOI != "" {
		if d, ok := findMatch(res.DbResults, "DOI Resolver"); ok {
			out.DOIInfo.Valid = true
			out.DOIInfo.ResolvedTitle = d.FoundTitle
		}
	}
	if ref.ArxivID != "" {
		if d, ok := findMatch(res.DbResults, "arXiv"); ok {
			out.ArxivInfo.Valid = true
			out.ArxivInfo.ResolvedTitle = d.FoundTitle
		}
	}

	out.RetractionInfo = model.RetractionInfo{
		IsRetracted:   res.Retraction.IsRetracted,
		RetractionDOI: res.Retraction.RetractionDOI,
		Source:        res.Retraction.Source,
	}
	return out
}

func findMatch(results []collector.DbResult, backendName string) (collector.DbResult, bool) {
	for _, d := range results {
		if d.Backend == backendName && d.Status == collector.DbMatch {
			return d, true
		}
	}
	return collector.DbResult{}, false
}
