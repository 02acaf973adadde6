// Package model holds the data types shared between the root hallucinator
// package's public API and internal/engine's implementation. It exists so
// internal/engine never needs to import the root package (which imports
// internal/engine) — the root package instead re-exports these types as
// aliases, keeping one definition and avoiding an import cycle.
package model

// Reference is a single parsed citation as extracted from a document. It is
// immutable once built; the engine never mutates fields after parsing.
type Reference struct {
	// Index is the reference's position in the input batch. Output results
	// are delivered in this order regardless of completion interleaving.
	Index int

	// Title is the canonical human-readable title string. May be empty.
	Title string

	// Authors is the ordered list of author strings as extracted from the
	// citation (e.g. "J. Smith", "Smith, J.", "van der Berg").
	Authors []string

	// DOI and ArxivID are optional identifiers.
	DOI     string
	ArxivID string

	// RawCitation is the original citation text, opaque to the engine.
	RawCitation string

	// SkipReason, when non-empty, causes the engine to emit a Skipped
	// result immediately without querying any backend.
	SkipReason string
}

// HasIdentifier reports whether the reference carries a DOI or arXiv ID.
func (r Reference) HasIdentifier() bool {
	return r.DOI != "" || r.ArxivID != ""
}

// Status is the terminal verdict for a reference.
type Status string

const (
	// StatusVerified means at least one backend (or the SearxNG fallback)
	// confirmed the title (and, where checked, the authors). A verified
	// reference that is also retracted still reports StatusVerified, with
	// RetractionInfo populated.
	StatusVerified Status = "verified"

	// StatusAuthorMismatch means a backend matched the title but the
	// authors it returned disagree with the reference's authors, and no
	// backend produced an outright verification.
	StatusAuthorMismatch Status = "author_mismatch"

	// StatusNotFound means no backend matched the title.
	StatusNotFound Status = "not_found"

	// StatusSkipped is used only for references carrying a SkipReason; it
	// never reaches the aggregation pipeline.
	StatusSkipped Status = "skipped"
)

// DbResultStatus classifies the outcome of a single backend's attempt to
// resolve one reference.
type DbResultStatus string

const (
	DbStatusMatch          DbResultStatus = "match"
	DbStatusNoMatch        DbResultStatus = "no_match"
	DbStatusAuthorMismatch DbResultStatus = "author_mismatch"
	DbStatusTimeout        DbResultStatus = "timeout"
	DbStatusRateLimited    DbResultStatus = "rate_limited"
	DbStatusError          DbResultStatus = "error"
	DbStatusSkipped        DbResultStatus = "skipped"
)

// DbResult is the per-backend slot inside a ValidationResult.
type DbResult struct {
	Backend         string
	Status          DbResultStatus
	ElapsedMs       int64
	FoundTitle      string
	ReturnedAuthors []string
	PaperURL        string
}

// DOIInfo reports whether a reference's DOI was confirmed: Valid is set
// only when the DOI Resolver backend reported a match for it.
type DOIInfo struct {
	Identifier    string
	Valid         bool
	ResolvedTitle string
}

// ArxivInfo reports whether a reference carrying an arXiv ID was confirmed:
// Valid is set only when the arXiv backend reported a match for it.
type ArxivInfo struct {
	Identifier    string
	Valid         bool
	ResolvedTitle string
}

// RetractionInfo carries retraction metadata for a verified reference.
type RetractionInfo struct {
	IsRetracted   bool
	RetractionDOI string
	Source        string
}

// ValidationResult is the engine's output for a single input reference, one
// per Reference in the input batch, delivered at its Index.
type ValidationResult struct {
	Index int

	Status Status

	// Source is the backend that verified the reference when
	// Status == StatusVerified, and the first backend that reported an
	// author mismatch when Status == StatusAuthorMismatch.
	Source string

	RefAuthors   []string
	FoundAuthors []string
	PaperURL     string

	// FailedDbs lists backends that timed out or failed transiently for
	// this reference (not backends that simply found no match, and not
	// permanent 4xx errors, which are not retry-pass eligible).
	FailedDbs []string

	DbResults []DbResult

	DOIInfo        DOIInfo
	ArxivInfo      ArxivInfo
	RetractionInfo RetractionInfo
}
