package index

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/sahilm/fuzzy"
)

const (
	// positionWeight turns the rune offset of a match into score, so a hit
	// 40 runes into a field costs as much as the whole threshold.
	positionWeight = 0.01
	// subtitlePenalty ranks title matches above equally good subtitle ones.
	subtitlePenalty = 0.05
	subsequenceBase = 0.2
	subsequenceGap  = 0.3
)

// fieldSource implements fuzzy.Source over the folded fields of every entry,
// two per entry.
type fieldSource []string

func (s fieldSource) String(i int) string { return s[i] }
func (s fieldSource) Len() int            { return len(s) }

// fieldScore scores a folded query against a folded field. 0 is a perfect
// match, 1 means no resemblance.
func fieldScore(q, field string) float64 {
	if q == "" || field == "" {
		return 1
	}
	if pos := runeIndex(field, q); pos >= 0 {
		return float64(pos) * positionWeight
	}
	return windowScore(q, field)
}

// windowScore slides windows around the query length over field and keeps
// the best edit distance, normalized by the query length.
func windowScore(q, field string) float64 {
	qr := []rune(q)
	fr := []rune(field)
	n := len(qr)
	best := 1.0
	for size := n - 1; size <= n+1; size++ {
		if size < 1 {
			continue
		}
		if size > len(fr) {
			size = len(fr)
		}
		for start := 0; start+size <= len(fr); start++ {
			d := levenshtein.ComputeDistance(q, string(fr[start:start+size]))
			s := float64(d)/float64(n) + float64(start)*positionWeight
			if s < best {
				best = s
			}
		}
		if size == len(fr) {
			break
		}
	}
	return math.Min(best, 1)
}

// subsequenceScores scores every field containing the query's characters in
// order. Tighter matches score lower.
func subsequenceScores(q string, src fieldSource) map[int]float64 {
	scores := make(map[int]float64)
	for _, m := range fuzzy.FindFrom(q, src) {
		if len(m.MatchedIndexes) == 0 {
			continue
		}
		first := m.MatchedIndexes[0]
		last := m.MatchedIndexes[len(m.MatchedIndexes)-1]
		span := last - first + 1
		gaps := span - len(m.MatchedIndexes)
		ratio := 0.0
		if span > 0 {
			ratio = float64(gaps) / float64(span)
		}
		scores[m.Index] = subsequenceBase + subsequenceGap*ratio
	}
	return scores
}

// runeIndex is strings.Index in runes.
func runeIndex(s, sub string) int {
	for i, off := 0, 0; off <= len(s)-len(sub); i++ {
		if s[off:off+len(sub)] == sub {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return -1
}
