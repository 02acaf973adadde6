package engine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/weinshel/hallucinator/internal/backend"
	"github.com/weinshel/hallucinator/internal/model"
	"github.com/weinshel/hallucinator/internal/ratelimit"
)

// fakeBackend is a scripted backend.Backend for engine-level tests. It
// never makes a network call; QueryByTitle/QueryByDOI return whatever was
// configured, counting how many times each is called.
type fakeBackend struct {
	name       string
	local      bool
	requireDOI bool
	outcome    backend.QueryOutcome
	err        error
	calls      atomic.Int64
}

func (f *fakeBackend) Name() string      { return f.name }
func (f *fakeBackend) IsLocal() bool     { return f.local }
func (f *fakeBackend) RequiresDOI() bool { return f.requireDOI }

func (f *fakeBackend) QueryByTitle(ctx context.Context, title string, authors []string) (backend.QueryOutcome, error) {
	f.calls.Add(1)
	return f.outcome, f.err
}

func (f *fakeBackend) QueryByDOI(ctx context.Context, doi string) (backend.QueryOutcome, error) {
	f.calls.Add(1)
	return f.outcome, f.err
}

// neverCancelled satisfies CancelSignal and never fires, for tests that
// don't exercise the shutdown path.
type neverCancelled struct{}

func (neverCancelled) IsSet() bool           { return false }
func (neverCancelled) Done() <-chan struct{} { return nil }

func newTestEngine(remote []backend.Backend, local []backend.Backend, doi backend.Backend) *Engine {
	e := &Engine{
		cfg:            model.Config{}.WithDefaults(),
		localBackends:  local,
		doiResolver:    doi,
		remoteBackends: remote,
		limiters:       make(map[string]*ratelimit.Adaptive),
		drainerChans:   make(map[string]chan drainerJob),
	}
	for _, b := range remote {
		e.limiters[b.Name()] = ratelimit.New(1000, 10)
		e.drainerChans[b.Name()] = make(chan drainerJob, 8)
	}
	return e
}

func TestRunLocalMatchShortCircuits(t *testing.T) {
	local := &fakeBackend{name: "DBLP (offline)", local: true, outcome: backend.QueryOutcome{
		Matched: true, FoundTitle: "Attention Is All You Need", Authors: []string{"A. Vaswani"},
	}}
	remote := &fakeBackend{name: "CrossRef", outcome: backend.QueryOutcome{Matched: true, FoundTitle: "Attention Is All You Need"}}

	e := newTestEngine([]backend.Backend{remote}, []backend.Backend{local}, nil)

	refs := []model.Reference{{Index: 0, Title: "Attention Is All You Need", Authors: []string{"A. Vaswani"}}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Status != model.StatusVerified || results[0].Source != "DBLP (offline)" {
		t.Fatalf("got %+v", results[0])
	}
	if remote.calls.Load() != 0 {
		t.Fatalf("remote backend should never be dispatched after a local match, got %d calls", remote.calls.Load())
	}
}

func TestRunNoMatchAnywhereIsNotFound(t *testing.T) {
	local := &fakeBackend{name: "DBLP (offline)", local: true, outcome: backend.QueryOutcome{Matched: false}}
	remote := &fakeBackend{name: "CrossRef", outcome: backend.QueryOutcome{Matched: false}}
	e := newTestEngine([]backend.Backend{remote}, []backend.Backend{local}, nil)

	refs := []model.Reference{{Index: 0, Title: "Some Unfindable Paper"}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	if results[0].Status != model.StatusNotFound {
		t.Fatalf("got %+v", results[0])
	}
	if remote.calls.Load() != 1 {
		t.Fatalf("expected the remote backend to be dispatched exactly once, got %d", remote.calls.Load())
	}
}

func TestRunSkipsReferenceWithSkipReason(t *testing.T) {
	e := newTestEngine(nil, nil, nil)
	refs := []model.Reference{{Index: 0, Title: "x", SkipReason: "duplicate of reference 3"}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	if results[0].Status != model.StatusSkipped {
		t.Fatalf("got %+v", results[0])
	}
}

func TestRunRemoteMatchVerifiesAmongSeveralBackends(t *testing.T) {
	winner := &fakeBackend{name: "CrossRef", outcome: backend.QueryOutcome{Matched: true, FoundTitle: "Some Title", Authors: []string{"J. Smith"}}}
	loser := &fakeBackend{name: "Semantic Scholar", outcome: backend.QueryOutcome{Matched: false}}
	e := newTestEngine([]backend.Backend{winner, loser}, nil, nil)

	refs := []model.Reference{{Index: 0, Title: "Some Title", Authors: []string{"J. Smith"}}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	if results[0].Status != model.StatusVerified || results[0].Source != "CrossRef" {
		t.Fatalf("got %+v", results[0])
	}
}

func TestRunOrdersOutputsByIndexRegardlessOfCompletion(t *testing.T) {
	fast := &fakeBackend{name: "CrossRef", outcome: backend.QueryOutcome{Matched: true, FoundTitle: "t"}}
	e := newTestEngine([]backend.Backend{fast}, nil, nil)

	refs := []model.Reference{
		{Index: 0, Title: "first"},
		{Index: 1, Title: "second"},
		{Index: 2, Title: "third"},
	}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	for i, r := range results {
		if r.Index != i {
			t.Fatalf("result %d has Index %d", i, r.Index)
		}
	}
}

func TestRunDOIResolverDoesNotShortCircuit(t *testing.T) {
	doi := &fakeBackend{name: "DOI Resolver", requireDOI: true, outcome: backend.QueryOutcome{Matched: true, FoundTitle: "Resolved Title"}}
	remote := &fakeBackend{name: "CrossRef", outcome: backend.QueryOutcome{Matched: false}}
	e := newTestEngine([]backend.Backend{remote}, nil, doi)

	refs := []model.Reference{{Index: 0, Title: "x", DOI: "10.1/abc"}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	if doi.calls.Load() != 1 {
		t.Fatalf("expected the DOI resolver to be queried inline once, got %d", doi.calls.Load())
	}
	if remote.calls.Load() != 0 {
		t.Fatalf("a DOI-verified reference must not query remote backends after early exit, got %d calls", remote.calls.Load())
	}
	var crossRefStatus model.DbResultStatus
	for _, d := range results[0].DbResults {
		if d.Backend == "CrossRef" {
			crossRefStatus = d.Status
		}
	}
	if crossRefStatus != model.DbStatusSkipped {
		t.Fatalf("DOI resolver must not short-circuit the remote dispatch loop: expected a skipped CrossRef slot, got %q", crossRefStatus)
	}
	if results[0].DOIInfo.Valid != true || results[0].DOIInfo.ResolvedTitle != "Resolved Title" {
		t.Fatalf("got %+v", results[0].DOIInfo)
	}
}

func TestRunEmptyBatchEmitsRetryPassZero(t *testing.T) {
	e := newTestEngine(nil, nil, nil)
	var got []model.ProgressEvent
	progress := func(ev model.ProgressEvent) { got = append(got, ev) }

	results := e.Run(nil, progress, neverCancelled{})
	if results != nil {
		t.Fatalf("expected nil results for an empty batch, got %v", results)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one progress event, got %d", len(got))
	}
	if rp, ok := got[0].(model.RetryPass); !ok || rp.Count != 0 {
		t.Fatalf("expected RetryPass{Count:0}, got %+v", got[0])
	}
}
