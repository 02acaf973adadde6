/*
Package orchestrator assembles the enabled-backend list for a run, per
spec.md section 4.6. It holds the fixed assembly order and the
online/offline pairs by backend name. Backend names also appear as string
literals in internal/engine: engine.New routes "DOI Resolver" by name, the
OpenAlex author carve-out tests for "OpenAlex", and DOI/arXiv info is
filled from the "DOI Resolver" and "arXiv" slots.
*/
package orchestrator

import (
	"github.com/weinshel/hallucinator/internal/backend"
)

// fixedOrder is the assembly order spec.md 4.6 names, before dedup and
// disabling. "OpenAlex" is first only when keyed; callers omit it from
// the candidates slice entirely when no key is configured, so this slice
// only encodes relative order, not the keyed gate itself.
var fixedOrder = []string{
	"OpenAlex",
	"CrossRef",
	"arXiv",
	"DBLP",
	"Semantic Scholar",
	"Europe PMC",
	"PubMed",
	"ACL Anthology",
	"DOI Resolver",
	"DBLP (offline)",
	"ACL Anthology (offline)",
}

// onlineOfflinePairs maps an offline backend name to the online name it
// supersedes when both are present.
var onlineOfflinePairs = map[string]string{
	"DBLP (offline)":          "DBLP",
	"ACL Anthology (offline)": "ACL Anthology",
}

// KnownNames returns the set of backend names Assemble recognises, for
// validating a configured disabled-backend list at startup.
func KnownNames() map[string]bool {
	known := make(map[string]bool, len(fixedOrder))
	for _, name := range fixedOrder {
		known[name] = true
	}
	return known
}

// Assemble builds the ordered, deduplicated, disabled-filtered backend
// list from a set of candidates (every backend the caller constructed,
// regardless of configuration) and a case-sensitive disabled-name set.
func Assemble(candidates []backend.Backend, disabled map[string]bool) []backend.Backend {
	byName := make(map[string]backend.Backend, len(candidates))
	for _, b := range candidates {
		byName[b.Name()] = b
	}

	// Online/offline dedup: if both variants are present, drop the online
	// one for this run.
	for offlineName, onlineName := range onlineOfflinePairs {
		if _, hasOffline := byName[offlineName]; hasOffline {
			delete(byName, onlineName)
		}
	}

	ordered := make([]backend.Backend, 0, len(byName))
	seen := make(map[string]bool, len(byName))
	for _, name := range fixedOrder {
		b, ok := byName[name]
		if !ok || disabled[name] {
			continue
		}
		ordered = append(ordered, b)
		seen[name] = true
	}
	// Any candidate not named in fixedOrder (a caller-supplied custom
	// backend) is appended in the order given, after the fixed set.
	for _, b := range candidates {
		name := b.Name()
		if seen[name] || disabled[name] {
			continue
		}
		if _, known := byName[name]; !known {
			continue
		}
		ordered = append(ordered, b)
		seen[name] = true
	}
	return ordered
}
