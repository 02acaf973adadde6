/*
Package authormatch decides whether two author lists — a reference's
extracted authors and a backend's returned authors — refer to the same set
of people.

Two comparison modes exist because extracted citations vary wildly in how
much of an author's name survived parsing: Full mode canonicalises each
name to "first-initial + surname" and requires an exact canonical overlap;
Surname-only mode, used when most of the reference's own authors are bare
surnames, compares surname tokens with a suffix rule that tolerates compound
surnames ("van der Berg" vs "Berg").
*/
package authormatch

import (
	"strings"
)

// Verdict is the validator's decision.
type Verdict string

const (
	Match    Verdict = "match"
	Mismatch Verdict = "mismatch"
	Unknown  Verdict = "unknown"
)

var connectors = map[string]bool{
	"van": true, "der": true, "den": true, "von": true,
	"de": true, "la": true, "le": true, "du": true, "da": true,
	"dos": true, "das": true, "di": true,
}

// Validate compares ref (the reference's extracted authors) against found
// (the authors a backend returned), and the title similarity score (0-100)
// between the reference and the backend's matched title. Per spec.md 4.2,
// an Unknown verdict (one side empty) is promoted to Match when titleScore
// is at or above nearExactThreshold.
func Validate(ref, found []string, titleScore, nearExactThreshold int) Verdict {
	ref = nonEmpty(ref)
	found = nonEmpty(found)

	if len(ref) == 0 || len(found) == 0 {
		if titleScore >= nearExactThreshold {
			return Match
		}
		return Unknown
	}

	if mode(ref) == modeFull {
		if fullModeMatch(ref, found) {
			return Match
		}
		return Mismatch
	}
	if surnameModeMatch(ref, found) {
		return Match
	}
	return Mismatch
}

func nonEmpty(authors []string) []string {
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

type matchMode int

const (
	modeFull matchMode = iota
	modeSurname
)

// mode picks the comparison mode for a reference's author list: full mode
// when at most half the authors are bare surnames, surname-only mode
// otherwise.
func mode(ref []string) matchMode {
	if len(ref) == 0 {
		return modeSurname
	}
	surnameOnly := 0
	for _, a := range ref {
		if isSurnameOnly(a) {
			surnameOnly++
		}
	}
	if surnameOnly*2 <= len(ref) {
		return modeFull
	}
	return modeSurname
}

// isSurnameOnly reports whether name carries no discoverable first name or
// initial: either a single bare token ("Smith"), a compound surname made
// only of connector words plus one capitalised word ("van der Berg"), or a
// comma-separated entry with nothing after the comma ("Smith,").
func isSurnameOnly(name string) bool {
	if idx := strings.IndexByte(name, ','); idx >= 0 {
		given := strings.TrimSpace(name[idx+1:])
		return given == ""
	}
	tokens := strings.Fields(name)
	if len(tokens) <= 1 {
		return true
	}
	for _, tok := range tokens[:len(tokens)-1] {
		if connectors[strings.ToLower(tok)] {
			continue
		}
		return false // a real given-name/initial token is present
	}
	return true
}

// fullModeMatch canonicalises both lists to "first-initial.surname" and
// reports whether the intersection is non-empty.
func fullModeMatch(ref, found []string) bool {
	refSet := canonicalSet(ref)
	foundSet := canonicalSet(found)
	for k := range refSet {
		if foundSet[k] {
			return true
		}
	}
	return false
}

func canonicalSet(authors []string) map[string]bool {
	set := make(map[string]bool, len(authors))
	for _, a := range authors {
		if c := canonicalize(a); c != "" {
			set[c] = true
		}
	}
	return set
}

// canonicalize reduces a name to "f.surname": the uppercase first initial
// of the given name (empty if none is discoverable) plus the lowercase
// surname token.
func canonicalize(name string) string {
	initial, surname := splitNameParts(name)
	surname = surnameKey(surname)
	if surname == "" {
		return ""
	}
	if initial == "" {
		return surname
	}
	return strings.ToUpper(initial[:1]) + "." + surname
}

func splitNameParts(name string) (initial, surname string) {
	if idx := strings.IndexByte(name, ','); idx >= 0 {
		surname = strings.TrimSpace(name[:idx])
		given := strings.TrimSpace(name[idx+1:])
		if given != "" {
			initial = given
		}
		return initial, surname
	}
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return "", ""
	}
	if len(tokens) == 1 {
		return "", tokens[0]
	}
	last := tokens[len(tokens)-1]
	var connectorPrefix []string
	for _, tok := range tokens[:len(tokens)-1] {
		if connectors[strings.ToLower(tok)] {
			connectorPrefix = append(connectorPrefix, tok)
			continue
		}
		if initial == "" {
			initial = tok
		}
	}
	surname = strings.Join(append(connectorPrefix, last), " ")
	return initial, surname
}

func surnameKey(surname string) string {
	surname = strings.ToLower(strings.TrimSpace(surname))
	surname = strings.Trim(surname, ".")
	return surname
}

// surnameModeMatch compares surname token lists: a match occurs when any
// reference surname's token list is a suffix match (in either direction)
// of any found surname's token list.
func surnameModeMatch(ref, found []string) bool {
	for _, r := range ref {
		_, rs := splitNameParts(r)
		rTokens := strings.Fields(strings.ToLower(rs))
		if len(rTokens) == 0 {
			continue
		}
		for _, f := range found {
			_, fs := splitNameParts(f)
			fTokens := strings.Fields(strings.ToLower(fs))
			if len(fTokens) == 0 {
				continue
			}
			if suffixMatch(rTokens, fTokens) {
				return true
			}
		}
	}
	return false
}

// suffixMatch reports whether one of a, b is a token-wise suffix of the
// other (accommodating "van der Berg" vs "Berg").
func suffixMatch(a, b []string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	offset := len(long) - len(short)
	for i, tok := range short {
		if tok != long[offset+i] {
			return false
		}
	}
	return true
}
