package normalize

import "github.com/agnivade/levenshtein"

// VerifiedThreshold is the similarity score (0-100) at or above which two
// titles are considered a verified match. Fixed by policy (spec.md 4.1);
// exposed as a constant so tests can assert against it directly.
const VerifiedThreshold = 95

// Similarity scores two already-normalised titles on a 0-100 scale using
// Levenshtein edit distance relative to the longer string's length. Two
// normalised titles "compare equal" for verification purposes iff
// Similarity(a, b) >= VerifiedThreshold.
func Similarity(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}
	score := 100 - (dist*100)/maxLen
	if score < 0 {
		score = 0
	}
	return score
}

// Matches reports whether two raw (not yet normalised) titles match at the
// given threshold, normalising both first.
func Matches(a, b string, threshold int) bool {
	return Similarity(Title(a), Title(b)) >= threshold
}
