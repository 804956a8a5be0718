package insight

import "strings"

// Similarity scores two descriptions in [0,1] as
// 1 - levenshtein/max(len). Comparison is case- and
// whitespace-insensitive; equal strings score 1, an empty side scores
// 0. Symmetric by construction.
func Similarity(a, b string) float64 {
	a = foldSpace(a)
	b = foldSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func foldSpace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// levenshtein computes edit distance with a rolling two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// SameMerchant reports whether two normalized merchant keys resolve
// to the same merchant identity: equality, containment either way, or
// a matching first significant word. Deliberately order-insensitive
// but not transitive; callers that group must iterate in a stable
// order.
func SameMerchant(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	wa, wb := firstSignificantWord(a), firstSignificantWord(b)
	return wa != "" && wa == wb
}

// firstSignificantWord returns the first token of at least three
// characters, skipping short filler tokens.
func firstSignificantWord(s string) string {
	for _, w := range strings.Fields(s) {
		if len(w) >= 3 {
			return w
		}
	}
	return ""
}

// descriptionsMatch is the duplicate-detection predicate: merchant
// identity on the normalized names, or raw similarity at or above the
// configured floor.
func descriptionsMatch(a, b string, minSimilarity float64) bool {
	if SameMerchant(NormalizeMerchant(a), NormalizeMerchant(b)) {
		return true
	}
	return Similarity(a, b) >= minSimilarity
}
