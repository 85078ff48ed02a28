package motifdb

import "smod/internal/model"

// Aho–Corasick automaton over the retained motif strings.
//
// newMatcher builds the trie and failure links; scan reports every
// (pattern, end) occurrence, overlapping ones included.

type acNode struct {
	next map[byte]int // root is state 0
	fail int
	out  []int // pattern indexes ending here
}

type pattern struct {
	text     string
	clusters []int
}

type matcher struct {
	nodes    []acNode
	patterns []pattern
}

// match is one occurrence of a pattern in a sequence.
type match struct {
	Start   int
	End     int
	Pattern int
}

func newMatcher(clusters []model.MotifCluster) *matcher {
	m := &matcher{nodes: []acNode{{next: map[byte]int{}}}}

	index := make(map[string]int)
	for _, c := range clusters {
		for _, mc := range c.Motifs {
			if mc.Motif == "" {
				continue
			}
			idx, ok := index[mc.Motif]
			if !ok {
				idx = len(m.patterns)
				index[mc.Motif] = idx
				m.patterns = append(m.patterns, pattern{text: mc.Motif})
				m.insert(mc.Motif, idx)
			}
			p := &m.patterns[idx]
			if n := len(p.clusters); n == 0 || p.clusters[n-1] != c.ID {
				p.clusters = append(p.clusters, c.ID)
			}
		}
	}
	m.link()
	return m
}

func (m *matcher) insert(text string, idx int) {
	cur := 0
	for i := 0; i < len(text); i++ {
		b := text[i]
		next, ok := m.nodes[cur].next[b]
		if !ok {
			m.nodes = append(m.nodes, acNode{next: map[byte]int{}})
			next = len(m.nodes) - 1
			m.nodes[cur].next[b] = next
		}
		cur = next
	}
	m.nodes[cur].out = append(m.nodes[cur].out, idx)
}

// link sets failure links breadth first and merges outputs along them.
func (m *matcher) link() {
	queue := make([]int, 0, len(m.nodes))
	for _, child := range m.nodes[0].next {
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		for b, s := range m.nodes[r].next {
			queue = append(queue, s)
			f := m.nodes[r].fail
			for f > 0 {
				if _, ok := m.nodes[f].next[b]; ok {
					break
				}
				f = m.nodes[f].fail
			}
			if target, ok := m.nodes[f].next[b]; ok && target != s {
				f = target
			}
			m.nodes[s].fail = f
			if out := m.nodes[f].out; len(out) > 0 {
				m.nodes[s].out = append(m.nodes[s].out, out...)
			}
		}
	}
}

func (m *matcher) scan(symbols string) []match {
	var out []match
	state := 0
	for i := 0; i < len(symbols); i++ {
		b := symbols[i]
		for state > 0 {
			if _, ok := m.nodes[state].next[b]; ok {
				break
			}
			state = m.nodes[state].fail
		}
		if next, ok := m.nodes[state].next[b]; ok {
			state = next
		}
		for _, idx := range m.nodes[state].out {
			out = append(out, match{Start: i + 1 - len(m.patterns[idx].text), End: i + 1, Pattern: idx})
		}
	}
	return out
}
