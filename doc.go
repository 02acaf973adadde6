// Package hallucinator implements the validation engine that checks a batch
// of parsed academic references against a bank of bibliographic databases
// and returns, for each reference, a verdict plus per-database evidence.
//
// The entry points are [CheckReferences] for a one-shot batch and [New] for
// a reusable [Validator]. The rest of this package is the cooperative
// [CancelSignal] and the data model shared between the engine and its
// callers; the engine's
// internals (scheduling, rate limiting, caching, aggregation) live under
// internal/ and are not part of the public surface.
package hallucinator
