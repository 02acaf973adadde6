// Package retraction extracts the inline retraction record a backend may
// attach to a query outcome into the engine's public RetractionInfo shape.
package retraction

import "github.com/weinshel/hallucinator/internal/backend"

// Info mirrors hallucinator.RetractionInfo without importing the root
// package (which would create an import cycle, since the root package
// depends on internal/engine, which depends on this package).
type Info struct {
	IsRetracted   bool
	RetractionDOI string
	Source        string
}

// FromOutcome builds an Info from a single backend's query outcome. Only
// one backend is expected to populate a retraction record per spec.md
// 4.1, but callers may pass each outcome as it arrives and keep the first
// non-nil result.
func FromOutcome(sourceName string, outcome backend.QueryOutcome) (Info, bool) {
	if outcome.Retraction == nil {
		return Info{}, false
	}
	source := outcome.Retraction.Source
	if source == "" {
		source = sourceName
	}
	return Info{
		IsRetracted:   true,
		RetractionDOI: outcome.Retraction.RetractionDOI,
		Source:        source,
	}, true
}

// Collect scans outcomes in arrival order and returns the first inline
// retraction record found, if any.
func Collect(bySource map[string]backend.QueryOutcome, order []string) (Info, bool) {
	for _, name := range order {
		outcome, ok := bySource[name]
		if !ok {
			continue
		}
		if info, found := FromOutcome(name, outcome); found {
			return info, true
		}
	}
	return Info{}, false
}
