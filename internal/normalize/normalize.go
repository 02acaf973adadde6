/*
Package normalize produces the canonical form used both as the query
cache's key and as the operand fed to the fuzzy title matcher.

The decomposition pipeline is grounded in the same golang.org/x/text idiom
yomira's pkg/slug package uses for accent stripping (transform.Chain over
unicode/norm), extended with the extra repair passes spec.md's title
normaliser requires: HTML-entity unescaping, diacritic recomposition, Greek
transliteration, and math-symbol spelling-out.
*/
package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Title normalises a reference or backend title into the canonical form
// used for cache keys and similarity comparisons. It is idempotent:
// Title(Title(x)) == Title(x).
func Title(s string) string {
	s = html.UnescapeString(s)
	s = repairSeparatedDiacritics(s)
	s = transliterateGreek(s)
	s = mapMathSymbols(s)
	s = decomposeAndStripMarks(s)
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "")
	return s
}

// repairSeparatedDiacritics recomposes a base letter immediately followed by
// a stray combining-diacritic glyph, the shape broken PDF text extraction
// tends to produce (e.g. U+0065 "e" + U+0301 combining acute, instead of
// the precomposed U+00E9 "é"). Unicode NFC normalisation is exactly this
// recomposition and is a no-op on text that's already composed or that has
// no adjacent base+combining pair to recompose.
func repairSeparatedDiacritics(s string) string {
	return norm.NFC.String(s)
}

// decomposeAndStripMarks applies compatibility decomposition (NFKD) and
// drops the resulting combining marks, so "café" and "café" both end
// up as "cafe".
func decomposeAndStripMarks(s string) string {
	t := transform.Chain(norm.NFKD, transform.RemoveFunc(isMn))
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// greekToLatin transliterates a Greek letter to its spelled-out Latin
// word, e.g. for titles that use Greek letters as mathematical notation
// ("α-synuclein" -> "alpha-synuclein").
var greekToLatin = map[rune]string{
	'α': "alpha", 'Α': "alpha",
	'β': "beta", 'Β': "beta",
	'γ': "gamma", 'Γ': "gamma",
	'δ': "delta", 'Δ': "delta",
	'ε': "epsilon", 'Ε': "epsilon",
	'ζ': "zeta", 'Ζ': "zeta",
	'η': "eta", 'Η': "eta",
	'θ': "theta", 'Θ': "theta",
	'ι': "iota", 'Ι': "iota",
	'κ': "kappa", 'Κ': "kappa",
	'λ': "lambda", 'Λ': "lambda",
	'μ': "mu", 'Μ': "mu",
	'ν': "nu", 'Ν': "nu",
	'ξ': "xi", 'Ξ': "xi",
	'ο': "omicron", 'Ο': "omicron",
	'π': "pi", 'Π': "pi",
	'ρ': "rho", 'Ρ': "rho",
	'σ': "sigma", 'ς': "sigma", 'Σ': "sigma",
	'τ': "tau", 'Τ': "tau",
	'υ': "upsilon", 'Υ': "upsilon",
	'φ': "phi", 'Φ': "phi",
	'χ': "chi", 'Χ': "chi",
	'ψ': "psi", 'Ψ': "psi",
	'ω': "omega", 'Ω': "omega",
}

func transliterateGreek(s string) string {
	if !strings.ContainsAny(s, "αΑβΒγΓδΔεΕζΖηΗθΘιΙκΚλΛμΜνΝξΞοΟπΠρΡσςΣτΤυΥφΦχΧψΨωΩ") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if word, ok := greekToLatin[r]; ok {
			b.WriteByte(' ')
			b.WriteString(word)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// mathSymbolToWord maps common math symbols found in paper titles to their
// spelled-out word, so e.g. "O(√n)" and "O(sqrt n)" normalise identically.
var mathSymbolToWord = map[rune]string{
	'√': "sqrt",
	'∞': "infinity",
	'±': "plusminus",
	'∑': "sum",
	'∏': "product",
	'∫': "integral",
	'≈': "approx",
	'≠': "notequal",
	'≤': "lessequal",
	'≥': "greaterequal",
	'∂': "partial",
	'∇': "nabla",
	'×': "times",
	'÷': "divide",
}

func mapMathSymbols(s string) string {
	if !strings.ContainsAny(s, "√∞±∑∏∫≈≠≤≥∂∇×÷") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if word, ok := mathSymbolToWord[r]; ok {
			b.WriteByte(' ')
			b.WriteString(word)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
