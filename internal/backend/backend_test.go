package backend

import (
	"testing"
)

func TestParseOpenAlexListMatch(t *testing.T) {
	body := []byte(`{"results":[
		{"title":"Some Other Paper","doi":"10.1/other","authorships":[]},
		{"title":"Attention Is All You Need","doi":"10.1/attn","authorships":[{"author":{"display_name":"Ashish Vaswani"}}],"is_retracted":false}
	]}`)
	out, ok := parseOpenAlexList(body, "Attention Is All You Need", nil)
	if !ok {
		t.Fatal("expected match")
	}
	if out.FoundTitle != "Attention Is All You Need" {
		t.Fatalf("got %q", out.FoundTitle)
	}
	if len(out.Authors) != 1 || out.Authors[0] != "Ashish Vaswani" {
		t.Fatalf("got authors %v", out.Authors)
	}
}

func TestParseOpenAlexListNoMatch(t *testing.T) {
	body := []byte(`{"results":[{"title":"Unrelated","doi":"x"}]}`)
	_, ok := parseOpenAlexList(body, "Attention Is All You Need", nil)
	if ok {
		t.Fatal("expected no match")
	}
}

func TestParseCrossRefListIgnoresRetractionUpdate(t *testing.T) {
	// CrossRef's own "update-to" retraction label is not surfaced: retraction
	// records are scoped to the DOI-bearing backend alone.
	body := []byte(`{"message":{"items":[
		{"title":["Attention Is All You Need"],"DOI":"10.1/attn","author":[{"given":"Ashish","family":"Vaswani"}],"update-to":[{"DOI":"10.1/ret","label":"Retraction"}]}
	]}}`)
	out, ok := parseCrossRefList(body, "Attention Is All You Need", nil)
	if !ok {
		t.Fatal("expected match")
	}
	if out.Retraction != nil {
		t.Fatalf("expected no retraction record from CrossRef, got %+v", out.Retraction)
	}
}

func TestParseCrossRefOne(t *testing.T) {
	body := []byte(`{"message":{"title":["Deep Residual Learning"],"DOI":"10.1/resnet","author":[{"given":"Kaiming","family":"He"}]}}`)
	out, ok := parseCrossRefOne(body, "10.1/resnet")
	if !ok {
		t.Fatal("expected match")
	}
	if out.FoundTitle != "Deep Residual Learning" {
		t.Fatalf("got %q", out.FoundTitle)
	}
}

func TestDOIResolverRequiresDOI(t *testing.T) {
	b := NewDOIResolver(nil)
	if !b.RequiresDOI() {
		t.Fatal("expected DOI resolver to require DOI")
	}
}

func TestQueryErrorKinds(t *testing.T) {
	if RateLimitedError(0).Kind != ErrRateLimited {
		t.Fatal("wrong kind")
	}
	if TimeoutError(nil).Kind != ErrTimeout {
		t.Fatal("wrong kind")
	}
	if TransportError(nil).Kind != ErrTransport {
		t.Fatal("wrong kind")
	}
}

func TestDBLPAuthorsHandlesSingleAndMany(t *testing.T) {
	single := dblpAuthors([]byte(`{"text":"Solo Author"}`))
	if len(single) != 1 || single[0] != "Solo Author" {
		t.Fatalf("got %v", single)
	}
	many := dblpAuthors([]byte(`[{"text":"A"},{"text":"B"}]`))
	if len(many) != 2 {
		t.Fatalf("got %v", many)
	}
}
