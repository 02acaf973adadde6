package querycache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRoundTripLayer1Only(t *testing.T) {
	c, err := New(Options{PositiveTTL: time.Hour, NegativeTTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	e := Entry{FoundTitle: "Attention Is All You Need", Class: Positive, InsertedAt: time.Now()}
	if err := c.Insert(context.Background(), "crossref", "attentionisallyouneed", e); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	c.l1.Wait()

	got, ok := c.Lookup(context.Background(), "crossref", "attentionisallyouneed")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.FoundTitle != e.FoundTitle {
		t.Fatalf("got %q, want %q", got.FoundTitle, e.FoundTitle)
	}
}

func TestMissUnknownKey(t *testing.T) {
	c, err := New(Options{PositiveTTL: time.Hour, NegativeTTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, ok := c.Lookup(context.Background(), "crossref", "nope"); ok {
		t.Fatal("expected miss")
	}
}

func TestLayer2PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.sqlite3")

	c1, err := New(Options{Path: path, PositiveTTL: time.Hour, NegativeTTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e := Entry{FoundTitle: "Deep Residual Learning", Class: Positive, InsertedAt: time.Now()}
	if err := c1.Insert(context.Background(), "openalex", "deepresiduallearning", e); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected sqlite file to exist: %v", err)
	}

	c2, err := New(Options{Path: path, PositiveTTL: time.Hour, NegativeTTL: time.Hour})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()

	got, ok := c2.Lookup(context.Background(), "openalex", "deepresiduallearning")
	if !ok {
		t.Fatal("expected layer-2 hit after reopen")
	}
	if got.FoundTitle != e.FoundTitle {
		t.Fatalf("got %q, want %q", got.FoundTitle, e.FoundTitle)
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c, err := New(Options{PositiveTTL: time.Millisecond, NegativeTTL: time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	e := Entry{Class: Negative, InsertedAt: time.Now().Add(-time.Hour)}
	if err := c.Insert(context.Background(), "arxiv", "somemissingtitle", e); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	c.l1.Wait()

	if _, ok := c.Lookup(context.Background(), "arxiv", "somemissingtitle"); ok {
		t.Fatal("expected expired entry to be treated as a miss")
	}
}

func TestClearNegativesKeepsPositives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.sqlite3")
	c, err := New(Options{Path: path, PositiveTTL: time.Hour, NegativeTTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Insert(ctx, "pubmed", "positivetitle", Entry{Class: Positive, InsertedAt: time.Now()}); err != nil {
		t.Fatalf("Insert positive: %v", err)
	}
	if err := c.Insert(ctx, "pubmed", "negativetitle", Entry{Class: Negative, InsertedAt: time.Now()}); err != nil {
		t.Fatalf("Insert negative: %v", err)
	}

	if err := c.ClearNegatives(ctx); err != nil {
		t.Fatalf("ClearNegatives: %v", err)
	}

	if _, ok := c.Lookup(ctx, "pubmed", "positivetitle"); !ok {
		t.Fatal("expected positive entry to survive ClearNegatives")
	}
	if _, ok := c.Lookup(ctx, "pubmed", "negativetitle"); ok {
		t.Fatal("expected negative entry to be gone")
	}
}
