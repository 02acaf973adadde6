/*
Package errorsx is the engine's error taxonomy.

It plays the role yomira's apperr package plays for that codebase's HTTP
layer, but classifies backend-query failures instead of client-facing ones:
a machine-readable Kind, an optional wrapped Cause, and constructor
functions per kind. The Backend implementations do not use this package's
QueryError; they return internal/backend's own QueryError. Within the
engine, this package's ConfigError is what engine.New returns for fatal
startup failures.
*/
package errorsx

import "fmt"

// Kind classifies a backend query failure per spec.md section 7.
type Kind string

const (
	// KindRateLimited means the backend responded with 429 or an
	// equivalent throttling signal.
	KindRateLimited Kind = "rate_limited"

	// KindTimeout means the query exceeded its configured deadline.
	KindTimeout Kind = "timeout"

	// KindTransport means a transport or parse failure occurred (a 5xx,
	// a connection error, or a response the backend could not decode).
	KindTransport Kind = "transport"

	// KindConfig means a startup-time configuration error (invalid
	// offline index path, unknown backend named in a disable list).
	// Errors of this kind are fatal; every other kind is contained to a
	// single reference's DbResults.
	KindConfig Kind = "config"
)

// QueryError classifies a backend query failure by Kind. It is not the
// type Backend.QueryByTitle and Backend.QueryByDOI return (that is
// internal/backend's QueryError).
type QueryError struct {
	Kind Kind
	// SuggestedWaitMs, for KindRateLimited, is an optional hint from the
	// backend (e.g. a Retry-After header) about how long to back off.
	// Zero means no hint was given.
	SuggestedWaitMs int64
	Cause           error
}

func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *QueryError) Unwrap() error { return e.Cause }

// RateLimited constructs a KindRateLimited QueryError.
func RateLimited(suggestedWaitMs int64, cause error) *QueryError {
	return &QueryError{Kind: KindRateLimited, SuggestedWaitMs: suggestedWaitMs, Cause: cause}
}

// Timeout constructs a KindTimeout QueryError.
func Timeout(cause error) *QueryError {
	return &QueryError{Kind: KindTimeout, Cause: cause}
}

// Transport constructs a KindTransport QueryError.
func Transport(cause error) *QueryError {
	return &QueryError{Kind: KindTransport, Cause: cause}
}

// ConfigError is returned by startup-time assembly (engine.New) when
// configuration is invalid; unlike QueryError, it is fatal to the run.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config: %s: %v", e.Message, e.Cause)
	}
	return "config: " + e.Message
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// Config constructs a ConfigError.
func Config(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
