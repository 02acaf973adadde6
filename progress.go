package hallucinator

import "github.com/weinshel/hallucinator/internal/model"

// ProgressEvent is the sealed set of lifecycle events the engine emits. The
// concrete types are Checking, DatabaseQueryComplete, RateLimitWait,
// Warning, Result, and RetryPass.
type (
	ProgressEvent          = model.ProgressEvent
	Checking               = model.Checking
	DatabaseQueryComplete  = model.DatabaseQueryComplete
	RateLimitWait          = model.RateLimitWait
	Warning                = model.Warning
	Result                 = model.Result
	RetryPass              = model.RetryPass
)

// ProgressFunc is invoked synchronously, on the same goroutine as the
// emitting component. It MUST be non-blocking and cheap; callers that need
// to do real work (rendering a UI) should enqueue the event and return.
type ProgressFunc = model.ProgressFunc

// noopProgress is a ProgressFunc that ignores every event. CheckReferences
// does not use it; a nil ProgressFunc is replaced by model.NoopProgress.
func noopProgress(model.ProgressEvent) {}
