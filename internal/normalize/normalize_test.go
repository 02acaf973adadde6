package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTitleBasic(t *testing.T) {
	cases := []struct {
		desc     string
		in       string
		expected string
	}{
		{"plain", "Attention Is All You Need", "attentionisallyouneed"},
		{"html entity", "Caf&eacute; Society", "cafesociety"},
		{"precomposed accent", "Café", "cafe"},
		{"decomposed accent", "Café", "cafe"},
		{"greek letter", "α-synuclein aggregation", "alphasynucleinaggregation"},
		{"math symbol", "A bound of O(√n)", "aboundofosqrtn"},
		{"mixed case", "ROSETTA Stone", "rosettastone"},
		{"empty", "", ""},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			got := Title(c.in)
			if got != c.expected {
				t.Fatalf("Title(%q) = %q, want %q", c.in, got, c.expected)
			}
		})
	}
}

func TestTitleIdempotent(t *testing.T) {
	inputs := []string{
		"Attention Is All You Need",
		"α-synuclein & β-amyloid",
		"O(√n) ± ∞",
		"",
		"Café société — a study",
	}
	for _, in := range inputs {
		once := Title(in)
		twice := Title(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("Title not idempotent for %q (-once +twice):\n%s", in, diff)
		}
	}
}

func TestTitleOnlyLowerAlnum(t *testing.T) {
	in := "The Quick, Brown Fox! (2021) -- αβγ √∞"
	got := Title(in)
	for _, r := range got {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			t.Fatalf("Title(%q) contains disallowed rune %q in %q", in, r, got)
		}
	}
}
