package collector

import (
	"sync"
	"testing"

	"github.com/weinshel/hallucinator/internal/retraction"
)

func TestFinalizeOnMatch(t *testing.T) {
	c := New(0, 1)
	c.ReportOutcome("CrossRef", DbMatch, 12, "Attention Is All You Need", []string{"A. Vaswani"}, "10.1/x", nil, false, true)

	res := <-c.Done()
	if res.Status != StatusVerified || res.Source != "CrossRef" {
		t.Fatalf("got %+v", res)
	}
}

func TestFinalizeOnMismatchWhenNoMatch(t *testing.T) {
	c := New(1, 2)
	c.ReportOutcome("CrossRef", DbAuthorMismatch, 5, "Scaling Laws", []string{"J. Kaplan"}, "", nil, false, true)
	c.ReportOutcome("OpenAlex", DbNoMatch, 5, "", nil, "", nil, false, true)

	res := <-c.Done()
	if res.Status != StatusAuthorMismatch || res.Source != "CrossRef" {
		t.Fatalf("got %+v", res)
	}
}

func TestFinalizeNotFoundWithFailedDbs(t *testing.T) {
	c := New(2, 2)
	c.ReportOutcome("CrossRef", DbTimeout, 0, "", nil, "", nil, true, true)
	c.ReportOutcome("OpenAlex", DbError, 0, "", nil, "", nil, true, true)

	res := <-c.Done()
	if res.Status != StatusNotFound {
		t.Fatalf("got %+v", res)
	}
	if len(res.FailedDbs) != 2 {
		t.Fatalf("expected both backends in failed_dbs, got %v", res.FailedDbs)
	}
}

func TestFirstMatchWinsUnderConcurrency(t *testing.T) {
	const n = 20
	c := New(0, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.ReportOutcome("backend", DbMatch, 0, "Some Title", []string{"x"}, "", nil, false, true)
		}(i)
	}
	wg.Wait()

	res := <-c.Done()
	if res.Status != StatusVerified {
		t.Fatalf("got %+v", res)
	}
	if len(res.DbResults) != n {
		t.Fatalf("expected %d DbResults, got %d", n, len(res.DbResults))
	}
}

func TestRecordCacheHitThenFinalizeNow(t *testing.T) {
	c := New(3, 0)
	c.RecordCacheHit("arXiv", true, "Attention Is All You Need", []string{"A. Vaswani"}, "10.1/x", nil)
	c.FinalizeNow()

	res := <-c.Done()
	if res.Status != StatusVerified || res.Source != "arXiv" {
		t.Fatalf("got %+v", res)
	}
}

func TestRetractionCarriedToResult(t *testing.T) {
	c := New(4, 1)
	rec := &retraction.Info{IsRetracted: true, RetractionDOI: "10.1/ret", Source: "DOI Resolver"}
	c.ReportOutcome("DOI Resolver", DbMatch, 0, "Some Title", nil, "", rec, false, true)

	res := <-c.Done()
	if !res.Retraction.IsRetracted || res.Retraction.RetractionDOI != "10.1/ret" {
		t.Fatalf("got %+v", res.Retraction)
	}
}
