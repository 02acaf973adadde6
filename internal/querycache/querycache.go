/*
Package querycache implements the two-tier query cache described in
spec.md section 4.4.

Layer 1 is dgraph-io/ristretto, the lock-free, wait-free-read cache the
rreading-glasses metadata proxy uses in front of its own slower storage
tier — the same shape of problem as fronting a sqlite-backed persistent
cache with a fast in-memory layer. Layer 2 reuses ckit's "Map" lookup-table
pattern verbatim (`Key string db:"k"`, `Value string db:"v"` over a sqlx.DB
against sqlite3): a single key/value table, upserted with INSERT OR
REPLACE, read with a plain SELECT. The value column carries a
segmentio/encoding-marshalled Entry; segmentio/encoding is ckit's own JSON
encoder so the on-disk row format reads the same family of bytes ckit
writes for its own responses.
*/
package querycache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/segmentio/encoding/json"
)

// Class is the cached outcome's polarity. Only positive and negative
// outcomes are ever cached; spec.md forbids caching timeout, rate_limited,
// or error outcomes.
type Class string

const (
	Positive Class = "positive"
	Negative Class = "negative"
)

// Entry is a cached backend outcome for one (backend, normalised title) key.
type Entry struct {
	FoundTitle      string    `json:"found_title,omitempty"`
	Authors         []string  `json:"authors,omitempty"`
	PaperURL        string    `json:"paper_url,omitempty"`
	RetractionDOI   string    `json:"retraction_doi,omitempty"`
	Retracted       bool      `json:"retracted,omitempty"`
	InsertedAt      time.Time `json:"inserted_at"`
	Class           Class     `json:"class"`
}

// Map is the layer-2 lookup-table row, named and tagged the way ckit's own
// identifier/OCI lookup tables are.
type Map struct {
	Key   string `db:"k"`
	Value string `db:"v"`
}

const schema = `CREATE TABLE IF NOT EXISTS map (k TEXT PRIMARY KEY, v TEXT NOT NULL)`

const keySep = "\x1f"

// Cache is the two-tier store. Layer 1 (ristretto) is always present;
// layer 2 (sqlite, via sqlx) is optional and only opened when a cache path
// is configured.
type Cache struct {
	l1 *ristretto.Cache

	l2     *sqlx.DB
	hasL2  bool

	positiveTTL time.Duration
	negativeTTL time.Duration
}

// Options configures a new Cache.
type Options struct {
	// Path, when non-empty, opens (creating if needed) a sqlite-backed
	// layer-2 store at this filesystem path.
	Path string

	PositiveTTL time.Duration
	NegativeTTL time.Duration
}

// New builds a Cache. Layer 1 is always constructed; layer 2 is opened
// only if opts.Path is non-empty.
func New(opts Options) (*Cache, error) {
	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 27,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("querycache: ristretto init: %w", err)
	}

	c := &Cache{
		l1:          l1,
		positiveTTL: opts.PositiveTTL,
		negativeTTL: opts.NegativeTTL,
	}
	if opts.Path == "" {
		return c, nil
	}

	db, err := sqlx.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("querycache: open sqlite3: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("querycache: create schema: %w", err)
	}
	c.l2 = db
	c.hasL2 = true
	return c, nil
}

// Close releases layer-2 resources, if any.
func (c *Cache) Close() error {
	if c.hasL2 {
		return c.l2.Close()
	}
	return nil
}

func cacheKey(backend, normalisedTitle string) string {
	return backend + keySep + normalisedTitle
}

func (c *Cache) ttlFor(class Class) time.Duration {
	if class == Negative {
		return c.negativeTTL
	}
	return c.positiveTTL
}

func (c *Cache) expired(e Entry) bool {
	ttl := c.ttlFor(e.Class)
	if ttl <= 0 {
		return false
	}
	return time.Since(e.InsertedAt) > ttl
}

// Lookup returns the cached entry for (backend, normalisedTitle), checking
// layer 1 first and falling through to layer 2 on a miss. A layer-2 hit is
// promoted into layer 1 so subsequent lookups avoid the disk round-trip.
// Expired entries are treated as misses (and, for layer 2, deleted).
func (c *Cache) Lookup(ctx context.Context, backend, normalisedTitle string) (Entry, bool) {
	key := cacheKey(backend, normalisedTitle)

	if v, ok := c.l1.Get(key); ok {
		e := v.(Entry)
		if !c.expired(e) {
			return e, true
		}
		c.l1.Del(key)
	}

	if !c.hasL2 {
		return Entry{}, false
	}

	var row Map
	err := c.l2.GetContext(ctx, &row, `SELECT k, v FROM map WHERE k = ?`, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			// Treat unexpected layer-2 errors as a miss; the fabric never
			// fails a query because the cache is unavailable.
			return Entry{}, false
		}
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal([]byte(row.Value), &e); err != nil {
		return Entry{}, false
	}
	if c.expired(e) {
		_, _ = c.l2.ExecContext(ctx, `DELETE FROM map WHERE k = ?`, key)
		return Entry{}, false
	}

	c.l1.SetWithTTL(key, e, 1, c.remainingTTL(e))
	return e, true
}

func (c *Cache) remainingTTL(e Entry) time.Duration {
	ttl := c.ttlFor(e.Class)
	if ttl <= 0 {
		return 0
	}
	remaining := ttl - time.Since(e.InsertedAt)
	if remaining <= 0 {
		return time.Second
	}
	return remaining
}

// Insert writes an entry to both layers. Callers must not pass entries
// derived from timeout, rate_limited, or error outcomes.
func (c *Cache) Insert(ctx context.Context, backend, normalisedTitle string, e Entry) error {
	key := cacheKey(backend, normalisedTitle)
	c.l1.SetWithTTL(key, e, 1, c.remainingTTL(e))

	if !c.hasL2 {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("querycache: marshal entry: %w", err)
	}
	_, err = c.l2.ExecContext(ctx, `INSERT OR REPLACE INTO map (k, v) VALUES (?, ?)`, key, string(b))
	if err != nil {
		return fmt.Errorf("querycache: write layer 2: %w", err)
	}
	return nil
}

// Stats reports layer-1 key counts, for the admin surface's /cache/stats.
type Stats struct {
	L1KeysAdded  int64
	L1Hits       int64
	L1Misses     int64
	HasL2        bool
}

func (c *Cache) Stats() Stats {
	m := c.l1.Metrics
	return Stats{
		L1KeysAdded: int64(m.KeysAdded()),
		L1Hits:      int64(m.Hits()),
		L1Misses:    int64(m.Misses()),
		HasL2:       c.hasL2,
	}
}

// Clear empties both layers entirely.
func (c *Cache) Clear(ctx context.Context) error {
	c.l1.Clear()
	if !c.hasL2 {
		return nil
	}
	_, err := c.l2.ExecContext(ctx, `DELETE FROM map`)
	return err
}

// ClearNegatives removes only negative-class entries from layer 2, and
// drops the layer-1 copies of the rows it deletes. Layer 1 is not
// enumerable, so other layer-1 negatives (all of them when there is no
// layer 2) stay until their TTL expires.
func (c *Cache) ClearNegatives(ctx context.Context) error {
	if !c.hasL2 {
		return nil
	}
	rows, err := c.l2.QueryContext(ctx, `SELECT k, v FROM map`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var toDelete []string
	for rows.Next() {
		var row Map
		if err := rows.Scan(&row.Key, &row.Value); err != nil {
			return err
		}
		var e Entry
		if err := json.Unmarshal([]byte(row.Value), &e); err != nil {
			continue
		}
		if e.Class == Negative {
			toDelete = append(toDelete, row.Key)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, k := range toDelete {
		if _, err := c.l2.ExecContext(ctx, `DELETE FROM map WHERE k = ?`, k); err != nil {
			return err
		}
		c.l1.Del(k)
	}
	return nil
}
