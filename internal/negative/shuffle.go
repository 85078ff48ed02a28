package negative

import (
	"fmt"
	"math/rand"

	"smod/internal/model"
)

// Generate returns ratio shuffled decoys per input sequence. Decoys of
// sequence i are drawn from a source seeded by (seed, i), so the output does
// not depend on how callers partition the work.
func Generate(seqs []model.Sequence, ratio, order int, seed int64) ([]model.Sequence, error) {
	if ratio < 1 {
		return nil, fmt.Errorf("%w: negative ratio must be >= 1", model.ErrInvalidParameter)
	}
	if order < 0 {
		return nil, fmt.Errorf("%w: shuffle order must be >= 0", model.ErrInvalidParameter)
	}

	out := make([]model.Sequence, 0, ratio*len(seqs))
	for i, s := range seqs {
		decoys, err := ShuffleSequence(s, ratio, order, SequenceSeed(seed, i))
		if err != nil {
			return nil, err
		}
		out = append(out, decoys...)
	}
	return out, nil
}

// Resolve returns the explicit negatives when supplied, otherwise generated
// decoys.
func Resolve(explicit, seqs []model.Sequence, ratio, order int, seed int64) ([]model.Sequence, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	return Generate(seqs, ratio, order, seed)
}

// ShuffleSequence produces times decoys of s.
func ShuffleSequence(s model.Sequence, times, order int, seed int64) ([]model.Sequence, error) {
	if order >= len(s.Symbols) {
		return nil, fmt.Errorf("%w: shuffle order %d must be < sequence length %d (%s)", model.ErrInvalidParameter, order, len(s.Symbols), s.Header)
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([]model.Sequence, 0, times)
	for n := 0; n < times; n++ {
		out = append(out, model.Sequence{
			Header:  fmt.Sprintf("%s_shuffled_%d", s.Header, n),
			Symbols: Shuffle(s.Symbols, order, rng),
		})
	}
	return out, nil
}

// SequenceSeed derives the per-sequence seed.
func SequenceSeed(seed int64, idx int) int64 {
	return seed*1_000_003 + int64(idx)
}

// Shuffle permutes symbols keeping the exact counts of every (order+1)-mer.
// Order 0 is a uniform permutation. The caller guarantees order < len(symbols).
func Shuffle(symbols string, order int, rng *rand.Rand) string {
	if order == 0 {
		b := []byte(symbols)
		rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
		return string(b)
	}
	return eulerShuffle(symbols, order, rng)
}

type vertex struct {
	key   string
	edges []int // target vertex per outgoing edge
	syms  []byte
	next  int // exit chosen for the arborescence
	used  int
}

// eulerShuffle walks a random Eulerian path through the multigraph whose
// vertices are the order-mers and whose edges are the (order+1)-mers.
func eulerShuffle(symbols string, order int, rng *rand.Rand) string {
	index := make(map[string]int)
	var verts []*vertex
	lookup := func(key string) int {
		if id, ok := index[key]; ok {
			return id
		}
		index[key] = len(verts)
		verts = append(verts, &vertex{key: key, next: -1})
		return len(verts) - 1
	}

	n := len(symbols)
	for i := 0; i+order < n; i++ {
		from := lookup(symbols[i : i+order])
		to := lookup(symbols[i+1 : i+order+1])
		verts[from].edges = append(verts[from].edges, to)
		verts[from].syms = append(verts[from].syms, symbols[i+order])
	}
	start := index[symbols[:order]]
	last := index[symbols[n-order:]]

	// Loop-erased random walks build a uniform arborescence rooted at last.
	inTree := make([]bool, len(verts))
	inTree[last] = true
	for u := range verts {
		v := u
		for !inTree[v] {
			verts[v].next = rng.Intn(len(verts[v].edges))
			v = verts[v].edges[verts[v].next]
		}
		v = u
		for !inTree[v] {
			inTree[v] = true
			v = verts[v].edges[verts[v].next]
		}
	}

	// Shuffle exits, keeping the arborescence edge last.
	for id, vert := range verts {
		k := len(vert.edges)
		if id != last {
			k--
			vert.edges[vert.next], vert.edges[k] = vert.edges[k], vert.edges[vert.next]
			vert.syms[vert.next], vert.syms[k] = vert.syms[k], vert.syms[vert.next]
		}
		rng.Shuffle(k, func(i, j int) {
			vert.edges[i], vert.edges[j] = vert.edges[j], vert.edges[i]
			vert.syms[i], vert.syms[j] = vert.syms[j], vert.syms[i]
		})
	}

	out := make([]byte, 0, n)
	out = append(out, symbols[:order]...)
	cur := start
	for len(out) < n {
		vert := verts[cur]
		out = append(out, vert.syms[vert.used])
		cur = vert.edges[vert.used]
		vert.used++
	}
	return string(out)
}
