package retraction

import (
	"testing"

	"github.com/weinshel/hallucinator/internal/backend"
)

func TestFromOutcomeNoRetraction(t *testing.T) {
	if _, ok := FromOutcome("CrossRef", backend.QueryOutcome{}); ok {
		t.Fatal("expected no retraction")
	}
}

func TestFromOutcomeUsesOutcomeSourceOverSourceName(t *testing.T) {
	outcome := backend.QueryOutcome{Retraction: &backend.RetractionRecord{RetractionDOI: "10.1/ret", Source: "DOI Resolver"}}
	info, ok := FromOutcome("CrossRef", outcome)
	if !ok || info.Source != "DOI Resolver" || info.RetractionDOI != "10.1/ret" {
		t.Fatalf("got %+v", info)
	}
}

func TestCollectReturnsFirstInOrder(t *testing.T) {
	bySource := map[string]backend.QueryOutcome{
		"CrossRef":     {},
		"DOI Resolver": {Retraction: &backend.RetractionRecord{RetractionDOI: "10.1/ret", Source: "DOI Resolver"}},
	}
	info, ok := Collect(bySource, []string{"CrossRef", "DOI Resolver"})
	if !ok || info.RetractionDOI != "10.1/ret" {
		t.Fatalf("got %+v, ok=%v", info, ok)
	}
}
