package subarray

import (
	"fmt"

	"smod/internal/model"
)

// Span is a half-open window with its summed importance.
type Span struct {
	Start int
	End   int
	Score float64
}

// Extract repeatedly takes the highest-scoring window with length in
// [minLen, maxLen] that does not overlap earlier picks, until no window has a
// positive sum. Ties prefer the leftmost start, then the shorter window.
// Results are in extraction order, which is non-increasing in score.
func Extract(scores []float64, minLen, maxLen int) ([]Span, error) {
	if minLen < 1 {
		return nil, fmt.Errorf("%w: min subarray size must be >= 1", model.ErrInvalidParameter)
	}
	if maxLen < minLen {
		return nil, fmt.Errorf("%w: max subarray size %d < min subarray size %d", model.ErrInvalidParameter, maxLen, minLen)
	}
	n := len(scores)
	if maxLen > n {
		maxLen = n
	}
	if minLen > n {
		return nil, nil
	}

	prefix := make([]float64, n+1)
	for i, s := range scores {
		prefix[i+1] = prefix[i] + s
	}
	taken := make([]bool, n)

	var out []Span
	for {
		best := Span{Start: -1}
		for start := 0; start+minLen <= n; start++ {
			if taken[start] {
				continue
			}
			for length := minLen; length <= maxLen && start+length <= n; length++ {
				if taken[start+length-1] {
					break
				}
				sum := prefix[start+length] - prefix[start]
				if best.Start < 0 || sum > best.Score {
					best = Span{Start: start, End: start + length, Score: sum}
				}
			}
		}
		if best.Start < 0 || best.Score <= 0 {
			return out, nil
		}
		for i := best.Start; i < best.End; i++ {
			taken[i] = true
		}
		out = append(out, best)
	}
}

// Subarrays extracts the spans of one sequence as model subarrays.
func Subarrays(seqIndex int, symbols string, scores []float64, minLen, maxLen int) ([]model.Subarray, error) {
	if len(scores) != len(symbols) {
		return nil, fmt.Errorf("score length %d does not match sequence length %d", len(scores), len(symbols))
	}
	spans, err := Extract(scores, minLen, maxLen)
	if err != nil {
		return nil, err
	}
	out := make([]model.Subarray, len(spans))
	for i, sp := range spans {
		out[i] = model.Subarray{
			SeqIndex: seqIndex,
			Start:    sp.Start,
			End:      sp.End,
			Motif:    symbols[sp.Start:sp.End],
			Score:    sp.Score,
		}
	}
	return out, nil
}
