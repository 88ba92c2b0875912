// Package matcher provides string normalization and similarity scoring for
// resolving free-text document titles against canonical collection titles.
package matcher

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies Unicode canonical decomposition (NFKD) to reduce
// encoding-driven mismatches between query titles and stored titles,
// e.g. composed vs. decomposed accented characters.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

// Ratio scores the similarity of two strings in [0, 1] using the
// Ratcliff/Obershelp longest-matching-block measure over runes.
// Comparison is case-insensitive. Equal strings score 1, fully
// disjoint strings score 0.
func Ratio(a, b string) float64 {
	ar := []rune(strings.ToLower(a))
	br := []rune(strings.ToLower(b))

	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}

	matched := 0
	for _, m := range matchingBlocks(ar, br) {
		matched += m.size
	}
	return 2.0 * float64(matched) / float64(total)
}

type block struct {
	a, b, size int
}

type span struct {
	alo, ahi, blo, bhi int
}

// matchingBlocks finds non-overlapping matching blocks by recursively
// splitting around the longest common block, processed iteratively with an
// explicit work list.
func matchingBlocks(a, b []rune) []block {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	work := []span{{0, len(a), 0, len(b)}}
	var blocks []block

	for len(work) > 0 {
		s := work[len(work)-1]
		work = work[:len(work)-1]

		m := longestMatch(a, b2j, s)
		if m.size == 0 {
			continue
		}
		blocks = append(blocks, m)
		if s.alo < m.a && s.blo < m.b {
			work = append(work, span{s.alo, m.a, s.blo, m.b})
		}
		if m.a+m.size < s.ahi && m.b+m.size < s.bhi {
			work = append(work, span{m.a + m.size, s.ahi, m.b + m.size, s.bhi})
		}
	}
	return blocks
}

// longestMatch finds the longest block where a[alo:ahi] and b[blo:bhi]
// agree. Of all maximal blocks it returns the one starting earliest in a,
// which keeps results deterministic for a fixed input pair.
func longestMatch(a []rune, b2j map[rune][]int, s span) block {
	best := block{a: s.alo, b: s.blo}

	// j2len[j] is the length of the match ending at a[i-1], b[j].
	j2len := make(map[int]int)
	for i := s.alo; i < s.ahi; i++ {
		next := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > best.size {
				best = block{a: i - k + 1, b: j - k + 1, size: k}
			}
		}
		j2len = next
	}
	return best
}
