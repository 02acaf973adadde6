/*
Package config handles environment-variable configuration for
cmd/hallucinate.

It leverages caarlos0/env the way yomira's own platform/config package
does: an env-tagged struct, parsed in one call, with envDefault tags
standing in for the zero-value defaults the engine itself would otherwise
apply via model.Config.WithDefaults.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/weinshel/hallucinator/internal/model"
)

// envConfig mirrors model.Config with env tags. It exists separately from
// model.Config so internal/model stays free of a third-party struct-tag
// dependency; only this package needs to know how the fields are named in
// the environment.
type envConfig struct {
	OpenAlexKey    string `env:"OPENALEX_KEY"`
	S2APIKey       string `env:"S2_API_KEY"`
	CrossrefMailto string `env:"CROSSREF_MAILTO"`

	DblpOfflinePath string `env:"DBLP_OFFLINE_PATH"`
	ACLOfflinePath  string `env:"ACL_OFFLINE_PATH"`

	CachePath   string        `env:"CACHE_PATH"`
	PositiveTTL time.Duration `env:"POSITIVE_TTL" envDefault:"168h"`
	NegativeTTL time.Duration `env:"NEGATIVE_TTL" envDefault:"24h"`

	NumWorkers          int           `env:"NUM_WORKERS" envDefault:"4"`
	DbTimeout           time.Duration `env:"DB_TIMEOUT" envDefault:"10s"`
	DbTimeoutShort      time.Duration `env:"DB_TIMEOUT_SHORT" envDefault:"5s"`
	MaxRateLimitRetries int           `env:"MAX_RATE_LIMIT_RETRIES" envDefault:"3"`

	SearxNGURL string `env:"SEARXNG_URL"`

	DisabledDbs string `env:"DISABLED_DBS"`

	CheckOpenAlexAuthors bool `env:"CHECK_OPENALEX_AUTHORS" envDefault:"false"`

	NearExactTitleThreshold int `env:"NEAR_EXACT_TITLE_THRESHOLD" envDefault:"98"`

	AdminAddr string `env:"ADMIN_ADDR"`
}

// Load parses environment variables into a model.Config, ready to pass to
// hallucinator.New.
func Load() (model.Config, error) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return model.Config{}, fmt.Errorf("config: parse environment: %w", err)
	}

	cfg := model.Config{
		OpenAlexKey:             ec.OpenAlexKey,
		S2APIKey:                ec.S2APIKey,
		CrossrefMailto:          ec.CrossrefMailto,
		DblpOfflinePath:         ec.DblpOfflinePath,
		ACLOfflinePath:          ec.ACLOfflinePath,
		CachePath:               ec.CachePath,
		PositiveTTL:             ec.PositiveTTL,
		NegativeTTL:             ec.NegativeTTL,
		NumWorkers:              ec.NumWorkers,
		DbTimeout:               ec.DbTimeout,
		DbTimeoutShort:          ec.DbTimeoutShort,
		MaxRateLimitRetries:     ec.MaxRateLimitRetries,
		SearxNGURL:              ec.SearxNGURL,
		DisabledDbs:             parseDisabledDbs(ec.DisabledDbs),
		CheckOpenAlexAuthors:    ec.CheckOpenAlexAuthors,
		NearExactTitleThreshold: ec.NearExactTitleThreshold,
		AdminAddr:               ec.AdminAddr,
	}
	return cfg.WithDefaults(), nil
}

// parseDisabledDbs splits a comma-separated DISABLED_DBS value into the
// set model.Config.DisabledDbs expects.
func parseDisabledDbs(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = true
		}
	}
	return set
}
