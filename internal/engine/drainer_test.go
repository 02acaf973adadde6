package engine

import (
	"testing"

	"github.com/weinshel/hallucinator/internal/backend"
	"github.com/weinshel/hallucinator/internal/model"
)

func TestRunRateLimitedBackendRetriesThenSucceeds(t *testing.T) {
	remote := &scriptedBackend{name: "CrossRef", scripts: []scriptedCall{
		{err: backend.RateLimitedError(0)},
		{err: backend.RateLimitedError(0)},
		{outcome: backend.QueryOutcome{Matched: true, FoundTitle: "Eventually Found"}},
	}}
	e := newTestEngine([]backend.Backend{remote}, nil, nil)

	refs := []model.Reference{{Index: 0, Title: "Eventually Found"}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	if results[0].Status != model.StatusVerified {
		t.Fatalf("expected the backend to eventually succeed within its rate-limit retry budget, got %+v", results[0])
	}
	if remote.calls.Load() != 3 {
		t.Fatalf("expected exactly 3 attempts (2 throttled + 1 success), got %d", remote.calls.Load())
	}
}

func TestRunRateLimitedBackendGivesUpAfterMaxRetries(t *testing.T) {
	remote := &scriptedBackend{name: "CrossRef", scripts: []scriptedCall{
		{err: backend.RateLimitedError(0)},
		{err: backend.RateLimitedError(0)},
		{err: backend.RateLimitedError(0)},
		{err: backend.RateLimitedError(0)},
	}}
	e := newTestEngine([]backend.Backend{remote}, nil, nil)
	e.cfg.MaxRateLimitRetries = 2

	refs := []model.Reference{{Index: 0, Title: "x"}}
	results := e.Run(refs, model.NoopProgress, neverCancelled{})

	var status model.DbResultStatus
	for _, d := range results[0].DbResults {
		if d.Backend == "CrossRef" {
			status = d.Status
		}
	}
	if status != model.DbStatusRateLimited {
		t.Fatalf("expected a rate_limited DbResult after exhausting retries, got %q", status)
	}
}

func TestRunCancellationMarksUndispatchedBackendsSkipped(t *testing.T) {
	remote := &fakeBackend{name: "CrossRef", outcome: backend.QueryOutcome{Matched: false}}
	e := newTestEngine([]backend.Backend{remote}, nil, nil)

	cancel := &settableCancel{}
	cancel.Cancel()

	refs := []model.Reference{{Index: 0, Title: "x"}}
	results := e.Run(refs, model.NoopProgress, cancel)

	if results[0].Status != model.StatusNotFound {
		t.Fatalf("got %+v", results[0])
	}
	for _, d := range results[0].DbResults {
		if d.Status != model.DbStatusSkipped {
			t.Fatalf("expected every slot to be skipped once cancelled, got %+v", d)
		}
	}
	if len(results[0].FailedDbs) != 0 {
		t.Fatalf("a cancelled run must report no failed_dbs, got %v", results[0].FailedDbs)
	}
}

type settableCancel struct {
	flag bool
	ch   chan struct{}
}

func (c *settableCancel) Cancel() {
	c.ch = make(chan struct{})
	close(c.ch)
	c.flag = true
}

func (c *settableCancel) IsSet() bool { return c.flag }

func (c *settableCancel) Done() <-chan struct{} {
	if c.ch == nil {
		return nil
	}
	return c.ch
}
