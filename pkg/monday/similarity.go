package monday

import "strings"

// similarityRatio scores how alike two strings are in [0, 1], using the
// classic longest-matching-block measure: 2*M / (len(a)+len(b)) where M is
// the total length of the matching blocks found by recursively taking the
// longest common substring. Comparison is case-insensitive.
func similarityRatio(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if len(a)+len(b) == 0 {
		return 0
	}
	m := matchingChars(a, b)
	return 2 * float64(m) / float64(len(a)+len(b))
}

// matchingChars returns the total size of the matching blocks between a
// and b: the longest common substring, plus matches recursively found on
// either side of it.
func matchingChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonSubstring returns the start offsets and length of the
// longest substring common to a and b.
func longestCommonSubstring(a, b string) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// prev[j] is the length of the common suffix of a[:i] and b[:j].
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return ai, bi, size
}
