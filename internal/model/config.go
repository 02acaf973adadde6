package model

import "time"

// Config recognises the options described in spec.md section 6. It is a
// plain value; callers build one directly (the common path for a library)
// or obtain one via the config subpackage's environment loader (the path
// taken by cmd/hallucinate).
type Config struct {
	// API / politeness.
	OpenAlexKey    string
	S2APIKey       string
	CrossrefMailto string

	// Offline index paths (sqlite databases built by an external tool).
	DblpOfflinePath string
	ACLOfflinePath  string

	// Cache.
	CachePath   string // enables the persistent layer 2 when non-empty.
	PositiveTTL time.Duration
	NegativeTTL time.Duration

	// Concurrency.
	NumWorkers          int
	DbTimeout           time.Duration
	DbTimeoutShort      time.Duration
	MaxRateLimitRetries int

	// SearxNG fallback. Empty disables it.
	SearxNGURL string

	// DisabledDbs removes backends case-sensitively by name.
	DisabledDbs map[string]bool

	// CheckOpenAlexAuthors: when false, OpenAlex author mismatches do not
	// downgrade status (OpenAlex's author metadata is noisy).
	CheckOpenAlexAuthors bool

	// NearExactTitleThreshold resolves spec.md's open question: the
	// similarity score (0-100) at or above which an unknown-author verdict is
	// treated as a match. Spec's reference value is 98.
	NearExactTitleThreshold int

	// AdminAddr, when non-empty, starts the operational HTTP surface
	// (cache stats/purge, health, Prometheus metrics) on this address.
	AdminAddr string
}

// WithDefaults returns a copy of c with zero-valued fields replaced by the
// defaults from spec.md section 6.
func (c Config) WithDefaults() Config {
	if c.PositiveTTL == 0 {
		c.PositiveTTL = 7 * 24 * time.Hour
	}
	if c.NegativeTTL == 0 {
		c.NegativeTTL = 24 * time.Hour
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = 4
	}
	if c.DbTimeout == 0 {
		c.DbTimeout = 10 * time.Second
	}
	if c.DbTimeoutShort == 0 {
		c.DbTimeoutShort = 5 * time.Second
	}
	if c.MaxRateLimitRetries == 0 {
		c.MaxRateLimitRetries = 3
	}
	if c.NearExactTitleThreshold == 0 {
		c.NearExactTitleThreshold = 98
	}
	if c.DisabledDbs == nil {
		c.DisabledDbs = map[string]bool{}
	}
	return c
}
