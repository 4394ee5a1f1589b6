package driven

// ApproxMatch is an approximate occurrence of a needle in a haystack.
// Start and End are rune offsets; End is exclusive.
type ApproxMatch struct {
	Start    int
	End      int
	Distance int
}

// ApproximateMatcher finds substrings within a bounded edit distance.
// The algorithm behind it is swappable.
type ApproximateMatcher interface {
	// Search returns every end position at which needle occurs in
	// haystack with at most maxDistance edits, with the best start for
	// each end.
	Search(needle, haystack []rune, maxDistance int) []ApproxMatch
}
