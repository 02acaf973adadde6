package hallucinator

import (
	"context"

	"github.com/weinshel/hallucinator/internal/engine"
	"github.com/weinshel/hallucinator/internal/model"
	"github.com/weinshel/hallucinator/internal/querycache"
)

// Validator holds an assembled backend fleet, rate limiters, and cache,
// reusable across many CheckReferences-style calls. Build one with New and
// Close it when done.
type Validator struct {
	eng *engine.Engine
}

// New assembles a Validator from cfg. An unknown backend named in
// cfg.DisabledDbs, or an offline index the sqlite driver refuses to open,
// is returned as an internal/errorsx ConfigError; a failure to set up the
// query cache is returned as internal/querycache reports it. Offline index
// paths are not checked for existence or readability here: a bad path
// surfaces as a transport error from that backend's queries.
func New(cfg Config) (*Validator, error) {
	eng, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Validator{eng: eng}, nil
}

// Close releases the query cache and any opened offline indexes.
func (v *Validator) Close() error {
	return v.eng.Close()
}

// CheckReferences validates every reference in refs concurrently, per
// spec.md's coordinator/drainer fabric, and returns one ValidationResult
// per input reference in the same order. progress may be nil. cancel may
// be nil, meaning the run cannot be cancelled once started.
func (v *Validator) CheckReferences(refs []Reference, progress ProgressFunc, cancel *CancelSignal) []ValidationResult {
	if progress == nil {
		progress = model.NoopProgress
	}
	if cancel == nil {
		cancel = NewCancelSignal()
	}
	return v.eng.Run(refs, progress, cancel)
}

// CacheStats reports the query cache's current counters, for an admin
// HTTP surface.
func (v *Validator) CacheStats() querycache.Stats {
	return v.eng.CacheStats()
}

// ClearCache empties the query cache entirely.
func (v *Validator) ClearCache(ctx context.Context) error {
	return v.eng.ClearCache(ctx)
}

// ClearNegativeCache removes only cached no-match outcomes.
func (v *Validator) ClearNegativeCache(ctx context.Context) error {
	return v.eng.ClearNegativeCache(ctx)
}

// BackendNames reports the name of every assembled backend.
func (v *Validator) BackendNames() []string {
	return v.eng.BackendNames()
}

// CheckReferences is the one-shot convenience entry point: it assembles a
// Validator from cfg, runs the batch, and tears the Validator down. Callers
// validating many batches against the same configuration should build a
// Validator once with New instead, to reuse its cache and rate limiters.
func CheckReferences(refs []Reference, cfg Config, progress ProgressFunc, cancel *CancelSignal) ([]ValidationResult, error) {
	v, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defer v.Close()
	return v.CheckReferences(refs, progress, cancel), nil
}
