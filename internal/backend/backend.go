/*
Package backend defines the uniform capability contract every academic
database adapter implements, plus the concrete adapters. The interface
shape — a small capability surface consumed through a shared HTTP client,
a Fetcher-like seam ckit's Server keeps as a field rather than a concrete
type — follows the way ckit's Server.IndexData decouples the HTTP handler
from any one storage/query backend.

Non-goals carried from spec.md: only as much request/response shape is
parsed as is needed to exercise the capability contract realistically.
These are not production API clients.
*/
package backend

import (
	"context"
	"time"
)

// Backend is the uniform contract every academic database adapter
// implements.
type Backend interface {
	// Name is the human-readable, cache-namespace identifier.
	Name() string

	// IsLocal reports whether this backend is queried in-process (no
	// network round trip, no drainer/rate-limiter slot).
	IsLocal() bool

	// RequiresDOI reports whether QueryByDOI is this backend's only
	// useful query shape (e.g. a pure DOI resolver).
	RequiresDOI() bool

	// QueryByTitle looks up a reference by title. ctx carries the
	// per-query timeout.
	QueryByTitle(ctx context.Context, title string, authors []string) (QueryOutcome, error)

	// QueryByDOI looks up a reference by DOI.
	QueryByDOI(ctx context.Context, doi string) (QueryOutcome, error)
}

// QueryOutcome is the result of a single successful query attempt (the
// query completed; it may or may not have found a match).
type QueryOutcome struct {
	// Matched reports whether the backend claims a title match.
	Matched bool

	FoundTitle string
	Authors    []string
	PaperURL   string

	// Retraction is populated only by the DOI-bearing backend that
	// discovers an inline retraction record.
	Retraction *RetractionRecord
}

// RetractionRecord is an inline retraction notice surfaced by a backend.
type RetractionRecord struct {
	RetractionDOI string
	Source        string
}

// ErrorKind classifies a failed query attempt.
type ErrorKind int

const (
	ErrRateLimited ErrorKind = iota
	ErrTimeout
	// ErrTransport is a transient failure (5xx, connection reset):
	// retry-pass eligible.
	ErrTransport
	// ErrPermanent is a 4xx response other than 429: not retried within
	// the run.
	ErrPermanent
)

// QueryError is the error variant returned by Backend methods. SuggestedWait
// is populated for ErrRateLimited when the backend communicated a
// Retry-After-style hint.
type QueryError struct {
	Kind          ErrorKind
	SuggestedWait time.Duration
	Cause         error
}

func (e *QueryError) Error() string {
	switch e.Kind {
	case ErrRateLimited:
		return "backend: rate limited"
	case ErrTimeout:
		return "backend: timeout"
	case ErrPermanent:
		if e.Cause != nil {
			return "backend: permanent error: " + e.Cause.Error()
		}
		return "backend: permanent error"
	default:
		if e.Cause != nil {
			return "backend: transport error: " + e.Cause.Error()
		}
		return "backend: transport error"
	}
}

func (e *QueryError) Unwrap() error { return e.Cause }

func RateLimitedError(wait time.Duration) *QueryError {
	return &QueryError{Kind: ErrRateLimited, SuggestedWait: wait}
}

func TimeoutError(cause error) *QueryError {
	return &QueryError{Kind: ErrTimeout, Cause: cause}
}

func TransportError(cause error) *QueryError {
	return &QueryError{Kind: ErrTransport, Cause: cause}
}

func PermanentError(cause error) *QueryError {
	return &QueryError{Kind: ErrPermanent, Cause: cause}
}
