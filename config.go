package hallucinator

import "github.com/weinshel/hallucinator/internal/model"

// Config recognises the options described in spec.md section 6. It is a
// plain value; callers build one directly (the common path for a library)
// or obtain one via the config subpackage's environment loader (the path
// taken by cmd/hallucinate). Defined in internal/model so internal/engine
// can consume it without importing this package.
type Config = model.Config
