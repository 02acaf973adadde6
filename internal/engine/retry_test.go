package engine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/weinshel/hallucinator/internal/backend"
	"github.com/weinshel/hallucinator/internal/model"
)

// scriptedCall is one canned response for scriptedBackend.
type scriptedCall struct {
	outcome backend.QueryOutcome
	err     error
}

// scriptedBackend returns its next scripted call on each invocation,
// repeating the last entry once exhausted — used to simulate a backend
// that fails transiently on the main pass and recovers on retry.
type scriptedBackend struct {
	name    string
	scripts []scriptedCall
	calls   atomic.Int64
}

func (b *scriptedBackend) Name() string      { return b.name }
func (b *scriptedBackend) IsLocal() bool     { return false }
func (b *scriptedBackend) RequiresDOI() bool { return false }

func (b *scriptedBackend) next() scriptedCall {
	idx := int(b.calls.Add(1)) - 1
	if idx >= len(b.scripts) {
		idx = len(b.scripts) - 1
	}
	return b.scripts[idx]
}

func (b *scriptedBackend) QueryByTitle(ctx context.Context, title string, authors []string) (backend.QueryOutcome, error) {
	c := b.next()
	return c.outcome, c.err
}

func (b *scriptedBackend) QueryByDOI(ctx context.Context, doi string) (backend.QueryOutcome, error) {
	c := b.next()
	return c.outcome, c.err
}

func TestRunRetryPassUpgradesNotFoundToVerified(t *testing.T) {
	remote := &scriptedBackend{name: "CrossRef", scripts: []scriptedCall{
		{err: backend.TransportError(nil)},
		{outcome: backend.QueryOutcome{Matched: true, FoundTitle: "Recovered Title"}},
	}}
	e := newTestEngine([]backend.Backend{remote}, nil, nil)

	refs := []model.Reference{{Index: 0, Title: "Recovered Title"}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	if results[0].Status != model.StatusVerified {
		t.Fatalf("expected retry pass to upgrade to Verified, got %+v", results[0])
	}
	if results[0].Source != "CrossRef" {
		t.Fatalf("got source %q", results[0].Source)
	}
	if remote.calls.Load() != 2 {
		t.Fatalf("expected main pass + retry pass to call the backend twice, got %d", remote.calls.Load())
	}
}

func TestRunRetryPassUpgradesAuthorMismatchToVerified(t *testing.T) {
	mismatch := &scriptedBackend{name: "Europe PMC", scripts: []scriptedCall{
		{outcome: backend.QueryOutcome{Matched: true, FoundTitle: "Recovered Title", Authors: []string{"Someone Else"}}},
	}}
	flaky := &scriptedBackend{name: "CrossRef", scripts: []scriptedCall{
		{err: backend.TransportError(nil)},
		{outcome: backend.QueryOutcome{Matched: true, FoundTitle: "Recovered Title", Authors: []string{"Ashish Vaswani"}}},
	}}
	e := newTestEngine([]backend.Backend{mismatch, flaky}, nil, nil)

	refs := []model.Reference{{Index: 0, Title: "Recovered Title", Authors: []string{"Ashish Vaswani"}}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	// Run's retry pass already folds in the upgrade: CrossRef's transient
	// failure made it retry-eligible even though Europe PMC's mismatch had
	// already decided the main pass's terminal status as AuthorMismatch.
	if results[0].Status != model.StatusVerified {
		t.Fatalf("expected retry pass to upgrade AuthorMismatch to Verified, got %+v", results[0])
	}
	if results[0].Source != "CrossRef" {
		t.Fatalf("got source %q", results[0].Source)
	}
	if flaky.calls.Load() != 2 {
		t.Fatalf("expected main pass + retry pass to call the flaky backend twice, got %d", flaky.calls.Load())
	}
}

func TestRunRetryPassLeavesPermanentErrorAlone(t *testing.T) {
	remote := &scriptedBackend{name: "CrossRef", scripts: []scriptedCall{
		{err: backend.PermanentError(nil)},
	}}
	e := newTestEngine([]backend.Backend{remote}, nil, nil)

	refs := []model.Reference{{Index: 0, Title: "x"}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	if results[0].Status != model.StatusNotFound {
		t.Fatalf("got %+v", results[0])
	}
	if len(results[0].FailedDbs) != 0 {
		t.Fatalf("permanent errors are not retry-eligible, expected empty failed_dbs, got %v", results[0].FailedDbs)
	}
	if remote.calls.Load() != 1 {
		t.Fatalf("expected exactly one call (no retry pass dispatch), got %d", remote.calls.Load())
	}
}
