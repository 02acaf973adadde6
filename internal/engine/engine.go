/*
Package engine implements the concurrent coordinator/drainer fabric of
spec.md sections 4.6-4.11: one coordinator goroutine per worker slot, one
long-lived drainer goroutine per remote backend, a per-backend adaptive
rate limiter, and the two-tier query cache sitting in front of every
remote dispatch.
*/
package engine

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/weinshel/hallucinator/internal/backend"
	"github.com/weinshel/hallucinator/internal/errorsx"
	"github.com/weinshel/hallucinator/internal/model"
	"github.com/weinshel/hallucinator/internal/orchestrator"
	"github.com/weinshel/hallucinator/internal/querycache"
	"github.com/weinshel/hallucinator/internal/ratelimit"
	"github.com/weinshel/hallucinator/internal/searxng"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"
)

// CancelSignal is the minimal structural interface the engine needs from a
// cancellation signal. The root package's concrete CancelSignal satisfies
// this without internal/engine importing the root package.
type CancelSignal interface {
	IsSet() bool
	Done() <-chan struct{}
}

const (
	defaultBaseRate = 2.0
	defaultBurst    = 2
)

// Engine holds every assembled backend, rate limiter, and drainer channel
// for the lifetime of one hallucinator instance. It is reusable across
// multiple Run calls.
type Engine struct {
	cfg    model.Config
	client *http.Client
	cache  *querycache.Cache

	localBackends  []backend.Backend
	doiResolver    backend.Backend
	remoteBackends []backend.Backend

	limiters     map[string]*ratelimit.Adaptive
	drainerChans map[string]chan drainerJob

	fallback *searxng.Fallback

	offlineDBs []*sqlx.DB
}

// New assembles an Engine from cfg, per spec.md section 4.6's backend
// construction and ordering rules.
func New(cfg model.Config) (*Engine, error) {
	cfg = cfg.WithDefaults()

	known := orchestrator.KnownNames()
	for name := range cfg.DisabledDbs {
		if !known[name] {
			return nil, errorsx.Config("unknown backend in disable list", nil)
		}
	}

	client := &http.Client{Timeout: cfg.DbTimeout}

	e := &Engine{
		cfg:          cfg,
		client:       client,
		limiters:     make(map[string]*ratelimit.Adaptive),
		drainerChans: make(map[string]chan drainerJob),
	}

	cache, err := querycache.New(querycache.Options{
		Path:        cfg.CachePath,
		PositiveTTL: cfg.PositiveTTL,
		NegativeTTL: cfg.NegativeTTL,
	})
	if err != nil {
		return nil, err
	}
	e.cache = cache

	var candidates []backend.Backend
	if cfg.OpenAlexKey != "" {
		candidates = append(candidates, backend.NewOpenAlex(client, cfg.OpenAlexKey))
	}
	candidates = append(candidates,
		backend.NewCrossRef(client, cfg.CrossrefMailto),
		backend.NewArxiv(client),
		backend.NewDBLPOnline(client),
		backend.NewSemanticScholar(client, cfg.S2APIKey),
		backend.NewEuropePMC(client),
		backend.NewPubMed(client),
		backend.NewACLOnline(client),
		backend.NewDOIResolver(client),
	)

	if cfg.DblpOfflinePath != "" {
		db, err := sqlx.Open("sqlite3", cfg.DblpOfflinePath)
		if err != nil {
			e.Close()
			return nil, errorsx.Config("open DBLP offline index", err)
		}
		e.offlineDBs = append(e.offlineDBs, db)
		candidates = append(candidates, backend.NewDBLPOffline(db))
	}
	if cfg.ACLOfflinePath != "" {
		db, err := sqlx.Open("sqlite3", cfg.ACLOfflinePath)
		if err != nil {
			e.Close()
			return nil, errorsx.Config("open ACL Anthology offline index", err)
		}
		e.offlineDBs = append(e.offlineDBs, db)
		candidates = append(candidates, backend.NewACLOffline(db))
	}

	assembled := orchestrator.Assemble(candidates, cfg.DisabledDbs)
	for _, b := range assembled {
		switch {
		case b.Name() == "DOI Resolver":
			e.doiResolver = b
		case b.IsLocal():
			e.localBackends = append(e.localBackends, b)
		default:
			e.remoteBackends = append(e.remoteBackends, b)
			e.limiters[b.Name()] = ratelimit.New(defaultBaseRate, defaultBurst)
			e.drainerChans[b.Name()] = make(chan drainerJob, 32)
		}
	}

	e.fallback = searxng.New(cfg.SearxNGURL, client)

	return e, nil
}

// Close releases the cache and any opened offline indexes. Safe to call on
// a partially constructed Engine (e.g. from New's error paths).
func (e *Engine) Close() error {
	var first error
	if e.cache != nil {
		if err := e.cache.Close(); err != nil && first == nil {
			first = err
		}
	}
	for _, db := range e.offlineDBs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Run validates and resolves every reference in refs, reporting progress
// through progress (never nil; callers wanting no progress pass
// model.NoopProgress) and honoring cancel cooperatively per spec.md 4.11.
// Results are returned in the same order as refs regardless of completion
// order.
func (e *Engine) Run(refs []model.Reference, progress model.ProgressFunc, cancel CancelSignal) []model.ValidationResult {
	total := len(refs)
	if progress == nil {
		progress = model.NoopProgress
	}
	if total == 0 {
		progress(model.RetryPass{Count: 0})
		return nil
	}

	runID := uuid.NewString()
	started := time.Now()
	log.Printf("run %s: starting, %d references, %d remote backends", runID, total, len(e.remoteBackends))

	drainersDone := e.startDrainers(cancel, progress)

	outputs := make([]model.ValidationResult, total)
	jobs := make(chan model.Reference, total)
	for _, r := range refs {
		jobs <- r
	}
	close(jobs)

	workers := e.cfg.NumWorkers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for ref := range jobs {
				outputs[ref.Index] = e.processReference(context.Background(), ref, cancel, progress, total)
			}
			return nil
		})
	}
	_ = g.Wait() // coordinators never return an error; the group just joins them

	e.retryPass(outputs, refs, cancel, progress, total)

	for _, ch := range e.drainerChans {
		close(ch)
	}
	<-drainersDone

	log.Printf("run %s: done in %v", runID, time.Since(started))
	return outputs
}

// startDrainers launches one long-lived drainer goroutine per remote
// backend, alive across both the main pass and the retry pass, and returns
// a channel closed once every drainer has exited.
func (e *Engine) startDrainers(cancel CancelSignal, progress model.ProgressFunc) <-chan struct{} {
	var wg sync.WaitGroup
	for _, b := range e.remoteBackends {
		wg.Add(1)
		go func(b backend.Backend) {
			defer wg.Done()
			e.drainLoop(b, e.drainerChans[b.Name()], cancel, progress)
		}(b)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}
