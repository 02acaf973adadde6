package hallucinator

import "github.com/weinshel/hallucinator/internal/model"

// These are re-exports of internal/model's types: the engine internals
// live in internal/engine, which cannot import this package (it imports
// internal/engine), so the shared data shapes are defined once in
// internal/model and aliased here for the public API.
type (
	Reference      = model.Reference
	Status         = model.Status
	DbResultStatus = model.DbResultStatus
	DbResult       = model.DbResult
	DOIInfo        = model.DOIInfo
	ArxivInfo      = model.ArxivInfo
	RetractionInfo = model.RetractionInfo

	ValidationResult = model.ValidationResult
)

const (
	StatusVerified       = model.StatusVerified
	StatusAuthorMismatch = model.StatusAuthorMismatch
	StatusNotFound       = model.StatusNotFound
	StatusSkipped        = model.StatusSkipped

	DbStatusMatch          = model.DbStatusMatch
	DbStatusNoMatch        = model.DbStatusNoMatch
	DbStatusAuthorMismatch = model.DbStatusAuthorMismatch
	DbStatusTimeout        = model.DbStatusTimeout
	DbStatusRateLimited    = model.DbStatusRateLimited
	DbStatusError          = model.DbStatusError
	DbStatusSkipped        = model.DbStatusSkipped
)
