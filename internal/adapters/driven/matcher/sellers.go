// Package matcher provides approximate substring search for linking
// extracted quotes back to the entry text they came from.
package matcher

import "github.com/custodia-labs/diarymem/internal/core/ports/driven"

// Ensure Sellers implements the interface.
var _ driven.ApproximateMatcher = (*Sellers)(nil)

// Sellers finds every substring of a haystack within a maximum Levenshtein
// distance of a needle, using Sellers' column-wise dynamic programme.
// Runs in O(len(needle) * len(haystack)) time and O(len(needle)) space.
type Sellers struct{}

// NewSellers creates a new matcher.
func NewSellers() *Sellers {
	return &Sellers{}
}

// Search returns one match per haystack end position whose best alignment
// is within maxDistance. End is exclusive. When several alignments ending at
// the same position share the minimum distance, the shortest one is kept.
func (m *Sellers) Search(needle, haystack []rune, maxDistance int) []driven.ApproxMatch {
	n := len(needle)
	if n == 0 || len(haystack) == 0 || maxDistance < 0 {
		return nil
	}

	// dist[i] and start[i] describe the best alignment of needle[:i] that
	// ends at the current haystack position.
	dist := make([]int, n+1)
	start := make([]int, n+1)
	prevDist := make([]int, n+1)
	prevStart := make([]int, n+1)

	// Before any haystack character, needle[:i] costs i deletions.
	for i := range prevDist {
		prevDist[i] = i
	}

	var matches []driven.ApproxMatch
	for j := 1; j <= len(haystack); j++ {
		// A match may begin at any haystack position for free.
		dist[0] = 0
		start[0] = j

		for i := 1; i <= n; i++ {
			cost := 1
			if needle[i-1] == haystack[j-1] {
				cost = 0
			}

			// Substitution or match.
			bestD := prevDist[i-1] + cost
			bestS := prevStart[i-1]

			// Needle character skipped.
			if d := dist[i-1] + 1; d < bestD || (d == bestD && start[i-1] > bestS) {
				bestD, bestS = d, start[i-1]
			}

			// Extra haystack character.
			if d := prevDist[i] + 1; d < bestD || (d == bestD && prevStart[i] > bestS) {
				bestD, bestS = d, prevStart[i]
			}

			dist[i], start[i] = bestD, bestS
		}

		if dist[n] <= maxDistance && start[n] < j {
			matches = append(matches, driven.ApproxMatch{
				Start:    start[n],
				End:      j,
				Distance: dist[n],
			})
		}

		dist, prevDist = prevDist, dist
		start, prevStart = prevStart, start
	}
	return matches
}
