/*
Package collector implements the per-reference RefCollector and
finalisation protocol of spec.md sections 3 (data model) and 4.9.

A RefCollector is shared, read and written by every drainer working a
single reference; its lifetime ends the moment the last decrement of
`remaining` reaches zero and the one-shot result is delivered. The atomic
`verified` flag lets a winning drainer short-circuit the rest without
taking the state mutex; the mutex itself is held only for the few field
writes each drainer performs, never across an I/O suspension point, per
spec.md section 5.
*/
package collector

import (
	"sync"
	"sync/atomic"

	"github.com/weinshel/hallucinator/internal/retraction"
)

// Status mirrors the root package's Status without importing it (the
// root package depends on internal/engine, which depends on this
// package, so importing back up would cycle).
type Status string

const (
	StatusVerified       Status = "verified"
	StatusAuthorMismatch Status = "author_mismatch"
	StatusNotFound       Status = "not_found"
)

// DbResultStatus mirrors the root package's DbResultStatus.
type DbResultStatus string

const (
	DbMatch          DbResultStatus = "match"
	DbNoMatch        DbResultStatus = "no_match"
	DbAuthorMismatch DbResultStatus = "author_mismatch"
	DbTimeout        DbResultStatus = "timeout"
	DbRateLimited    DbResultStatus = "rate_limited"
	DbError          DbResultStatus = "error"
	DbSkipped        DbResultStatus = "skipped"
)

// DbResult is the per-backend slot inside a finalised Result.
type DbResult struct {
	Backend    string
	Status     DbResultStatus
	ElapsedMs  int64
	FoundTitle string
	Authors    []string
	PaperURL   string
}

// VerifiedInfo is the winning backend's evidence.
type VerifiedInfo struct {
	Source     string
	FoundTitle string
	Authors    []string
	PaperURL   string
}

// MismatchInfo is the first author-mismatch backend's evidence, retained
// in case no backend ever verifies.
type MismatchInfo struct {
	Source  string
	Authors []string
}

// Result is the finalised, collector-level outcome for one reference.
// internal/engine translates this into the root package's
// ValidationResult, filling in DOIInfo/ArxivInfo (which require the
// original Reference, not just collector state).
type Result struct {
	Index int

	Status Status
	Source string

	FoundAuthors []string
	PaperURL     string

	FailedDbs []string
	DbResults []DbResult

	Retraction retraction.Info
}

type state struct {
	mu sync.Mutex

	verifiedInfo   *VerifiedInfo
	firstMismatch  *MismatchInfo
	retractionInfo *retraction.Info

	dbResults []DbResult
	failedDbs []string
}

// RefCollector aggregates per-backend outcomes for a single in-flight
// reference.
type RefCollector struct {
	index int

	remaining atomic.Int64
	verified  atomic.Bool

	st state

	done     chan Result
	finalize sync.Once
}

// New builds a RefCollector for the reference at index, expecting
// `remaining` drainers to report before finalisation. If remaining is
// zero (every remote backend was a cache hit), no Decrement will deliver
// the result; callers must call FinalizeNow or SetRemaining(0).
func New(index int, remaining int) *RefCollector {
	c := &RefCollector{index: index, done: make(chan Result, 1)}
	c.remaining.Store(int64(remaining))
	return c
}

// SetRemaining fixes the outstanding-report count once the coordinator
// knows how many drainer jobs it actually dispatched (spec.md 4.7 step 7),
// after the local/DOI inline phase and the cache pre-check have already
// reported their own outcomes via ReportOutcome/RecordCacheHit. If n is
// zero, finalisation happens immediately.
func (c *RefCollector) SetRemaining(n int) {
	c.remaining.Store(int64(n))
	if n == 0 {
		c.finalizeLocked()
	}
}

// Verified reports whether a winning backend has already been recorded.
// Drainers consult this (Acquire ordering, via atomic.Bool's Load) before
// doing any network work.
func (c *RefCollector) Verified() bool {
	return c.verified.Load()
}

// RecordCacheHit inserts a cache-derived DbResult for a backend the
// coordinator decided not to dispatch, per spec.md 4.7 step 6. It never
// touches `remaining` — remaining counts only dispatched drainers
// (spec.md 4.7 step 7) and is fixed by SetRemaining once the pre-check
// is done.
func (c *RefCollector) RecordCacheHit(backend string, matched bool, foundTitle string, authors []string, paperURL string, rec *retraction.Info) {
	c.st.mu.Lock()
	defer c.st.mu.Unlock()

	status := DbNoMatch
	if matched {
		status = DbMatch
	}
	c.st.dbResults = append(c.st.dbResults, DbResult{Backend: backend, Status: status, FoundTitle: foundTitle, Authors: authors, PaperURL: paperURL})

	if matched {
		if c.verified.CompareAndSwap(false, true) && c.st.verifiedInfo == nil {
			c.st.verifiedInfo = &VerifiedInfo{Source: backend, FoundTitle: foundTitle, Authors: authors, PaperURL: paperURL}
		}
	}
	if rec != nil && c.st.retractionInfo == nil {
		c.st.retractionInfo = rec
	}
}

// ReportOutcome records one drainer's (or inline local/DOI backend's)
// outcome and, if this was the last outstanding report, finalises the
// reference and sends the Result on Done(). retryEligible marks the
// backend as belonging in failed_dbs (spec.md 4.12's distinction between
// transient failures, which are retry-pass eligible, and permanent 4xx
// errors, which are not, even though both report DbError).
func (c *RefCollector) ReportOutcome(backend string, status DbResultStatus, elapsedMs int64, foundTitle string, authors []string, paperURL string, rec *retraction.Info, retryEligible, decrements bool) {
	// The first drainer to flip verified also wins the right to write
	// verified_info, per spec.md 4.8 step 6: CAS the flag, then the
	// winner alone writes state under the lock.
	won := status == DbMatch && c.verified.CompareAndSwap(false, true)

	c.st.mu.Lock()
	c.st.dbResults = append(c.st.dbResults, DbResult{Backend: backend, Status: status, ElapsedMs: elapsedMs, FoundTitle: foundTitle, Authors: authors, PaperURL: paperURL})

	switch status {
	case DbMatch:
		if won {
			c.st.verifiedInfo = &VerifiedInfo{Source: backend, FoundTitle: foundTitle, Authors: authors, PaperURL: paperURL}
		}
	case DbAuthorMismatch:
		if c.st.firstMismatch == nil {
			c.st.firstMismatch = &MismatchInfo{Source: backend, Authors: authors}
		}
	}
	if retryEligible && (status == DbTimeout || status == DbError) {
		c.st.failedDbs = append(c.st.failedDbs, backend)
	}
	if rec != nil && c.st.retractionInfo == nil {
		c.st.retractionInfo = rec
	}
	c.st.mu.Unlock()

	if decrements {
		c.Decrement()
	}
}

// Decrement lowers the outstanding-report counter. When it reaches zero,
// the caller that drove it there finalises the reference exactly once.
func (c *RefCollector) Decrement() {
	if c.remaining.Add(-1) == 0 {
		c.finalizeLocked()
	}
}

func (c *RefCollector) finalizeLocked() {
	c.finalize.Do(func() {
		c.done <- c.buildResult()
	})
}

func (c *RefCollector) buildResult() Result {
	c.st.mu.Lock()
	defer c.st.mu.Unlock()

	res := Result{
		Index:     c.index,
		DbResults: c.st.dbResults,
		FailedDbs: c.st.failedDbs,
	}
	if c.st.retractionInfo != nil {
		res.Retraction = *c.st.retractionInfo
	}

	switch {
	case c.st.verifiedInfo != nil:
		res.Status = StatusVerified
		res.Source = c.st.verifiedInfo.Source
		res.FoundAuthors = c.st.verifiedInfo.Authors
		res.PaperURL = c.st.verifiedInfo.PaperURL
	case c.st.firstMismatch != nil:
		res.Status = StatusAuthorMismatch
		res.Source = c.st.firstMismatch.Source
		res.FoundAuthors = c.st.firstMismatch.Authors
	default:
		res.Status = StatusNotFound
	}
	return res
}

// Done returns the channel the finalised Result is delivered on, exactly
// once.
func (c *RefCollector) Done() <-chan Result {
	return c.done
}

// FinalizeNow forces finalisation when remaining was constructed as zero
// (every remote backend was a cache hit, so no drainer will ever call
// Decrement). Safe to call unconditionally; finalize.Once guarantees a
// single delivery even if a racing Decrement also reaches zero.
func (c *RefCollector) FinalizeNow() {
	if c.remaining.Load() == 0 {
		c.finalizeLocked()
	}
}

// UpgradeToWebSearch is called by the finaliser when status would
// otherwise be NotFound and the SearxNG fallback found a match. It
// mutates the already-built Result rather than RefCollector state, since
// finalisation has already fired by the time this runs (spec.md 4.9).
func UpgradeToWebSearch(res Result, foundTitle, paperURL string) Result {
	res.Status = StatusVerified
	res.Source = "Web Search"
	res.PaperURL = paperURL
	res.FoundAuthors = nil
	_ = foundTitle
	return res
}
