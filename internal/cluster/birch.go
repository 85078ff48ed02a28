package cluster

import (
	"fmt"
	"math"

	"smod/internal/model"
	"smod/internal/vectorize"
)

// Birch builds a clustering-feature tree whose leaf subclusters have radius
// at most Threshold, then optionally groups the subcluster centroids into
// NClusters with k-means. NClusters = 0 labels points by subcluster.
type Birch struct {
	cfg BirchConfig
}

func NewBirch(cfg BirchConfig) (*Birch, error) {
	if cfg.Threshold <= 0 {
		return nil, fmt.Errorf("%w: threshold must be > 0", model.ErrInvalidParameter)
	}
	if cfg.BranchingFactor < 2 {
		return nil, fmt.Errorf("%w: branching factor must be >= 2", model.ErrInvalidParameter)
	}
	if cfg.NClusters < 0 {
		return nil, fmt.Errorf("%w: n clusters must be >= 0", model.ErrInvalidParameter)
	}
	return &Birch{cfg: cfg}, nil
}

func (b *Birch) Name() string {
	return AlgorithmBirch
}

// feature is a clustering feature: count, linear sum and squared sum.
type feature struct {
	n     int
	ls    vectorize.Vector
	ss    float64
	child *cfNode
}

type cfNode struct {
	leaf    bool
	entries []*feature
}

func pointFeature(p vectorize.Vector) *feature {
	ls := vectorize.Vector{
		Indices: append([]int(nil), p.Indices...),
		Values:  append([]float64(nil), p.Values...),
	}
	return &feature{n: 1, ls: ls, ss: ls.Dot(ls)}
}

func (f *feature) add(o *feature) {
	f.n += o.n
	f.ss += o.ss
	f.ls = sum(f.ls, o.ls)
}

func (f *feature) centroid() vectorize.Vector {
	c := vectorize.Vector{
		Indices: append([]int(nil), f.ls.Indices...),
		Values:  make([]float64, len(f.ls.Values)),
	}
	for i, v := range f.ls.Values {
		c.Values[i] = v / float64(f.n)
	}
	return c
}

// sqDistance between centroids of f and o.
func (f *feature) sqDistance(o *feature) float64 {
	nf, no := float64(f.n), float64(o.n)
	d := f.ls.Dot(f.ls)/(nf*nf) + o.ls.Dot(o.ls)/(no*no) - 2*f.ls.Dot(o.ls)/(nf*no)
	if d < 0 {
		return 0
	}
	return d
}

// mergedRadius is the radius the union of f and o would have.
func (f *feature) mergedRadius(o *feature) float64 {
	n := float64(f.n + o.n)
	ls2 := f.ls.Dot(f.ls) + o.ls.Dot(o.ls) + 2*f.ls.Dot(o.ls)
	r2 := (f.ss+o.ss)/n - ls2/(n*n)
	if r2 < 0 {
		return 0
	}
	return math.Sqrt(r2)
}

// sum merges two sorted sparse vectors.
func sum(a, b vectorize.Vector) vectorize.Vector {
	out := vectorize.Vector{
		Indices: make([]int, 0, len(a.Indices)+len(b.Indices)),
		Values:  make([]float64, 0, len(a.Indices)+len(b.Indices)),
	}
	i, j := 0, 0
	for i < len(a.Indices) || j < len(b.Indices) {
		switch {
		case j >= len(b.Indices) || (i < len(a.Indices) && a.Indices[i] < b.Indices[j]):
			out.Indices = append(out.Indices, a.Indices[i])
			out.Values = append(out.Values, a.Values[i])
			i++
		case i >= len(a.Indices) || b.Indices[j] < a.Indices[i]:
			out.Indices = append(out.Indices, b.Indices[j])
			out.Values = append(out.Values, b.Values[j])
			j++
		default:
			out.Indices = append(out.Indices, a.Indices[i])
			out.Values = append(out.Values, a.Values[i]+b.Values[j])
			i++
			j++
		}
	}
	return out
}

func summarize(node *cfNode) *feature {
	f := &feature{child: node}
	for _, e := range node.entries {
		f.add(e)
	}
	return f
}

func (b *Birch) FitPredict(vectors []vectorize.Vector) ([]int, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	root := &cfNode{leaf: true}
	for _, p := range vectors {
		if left, right, split := b.insert(root, pointFeature(p)); split {
			root = &cfNode{entries: []*feature{summarize(left), summarize(right)}}
		}
	}

	var subclusters []*feature
	collectLeaves(root, &subclusters)
	centroids := make([]vectorize.Vector, len(subclusters))
	for i, sc := range subclusters {
		centroids[i] = sc.centroid()
	}

	global := make([]int, len(subclusters))
	for i := range global {
		global[i] = i
	}
	if b.cfg.NClusters > 0 && b.cfg.NClusters < len(subclusters) {
		km, err := NewMiniBatchKMeans(KMeansConfig{
			NClusters: b.cfg.NClusters,
			BatchSize: len(centroids),
			MaxIter:   100,
			Seed:      b.cfg.Seed,
		})
		if err != nil {
			return nil, err
		}
		if global, err = km.FitPredict(centroids); err != nil {
			return nil, err
		}
	}

	labels := make([]int, len(vectors))
	for i, p := range vectors {
		best, bestDist := 0, math.Inf(1)
		for j, c := range centroids {
			if d := p.SquaredDistance(c); d < bestDist {
				best, bestDist = j, d
			}
		}
		labels[i] = global[best]
	}
	return labels, nil
}

// insert adds f below node. When node overflows it is split and both halves
// are returned for the caller to link in.
func (b *Birch) insert(node *cfNode, f *feature) (*cfNode, *cfNode, bool) {
	closest := closestEntry(node.entries, f)

	if node.leaf {
		if closest >= 0 && node.entries[closest].mergedRadius(f) <= b.cfg.Threshold {
			node.entries[closest].add(f)
			return nil, nil, false
		}
		node.entries = append(node.entries, f)
	} else {
		entry := node.entries[closest]
		left, right, split := b.insert(entry.child, f)
		if !split {
			entry.add(f)
			return nil, nil, false
		}
		node.entries[closest] = summarize(left)
		node.entries = append(node.entries, summarize(right))
	}

	if len(node.entries) <= b.cfg.BranchingFactor {
		return nil, nil, false
	}
	left, right := splitNode(node)
	return left, right, true
}

func closestEntry(entries []*feature, f *feature) int {
	best, bestDist := -1, math.Inf(1)
	for i, e := range entries {
		if d := e.sqDistance(f); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// splitNode seeds two nodes with the farthest pair of entries and assigns
// the rest to the closer seed.
func splitNode(node *cfNode) (*cfNode, *cfNode) {
	a, b, far := 0, 1, -1.0
	for i := range node.entries {
		for j := i + 1; j < len(node.entries); j++ {
			if d := node.entries[i].sqDistance(node.entries[j]); d > far {
				a, b, far = i, j, d
			}
		}
	}
	left := &cfNode{leaf: node.leaf}
	right := &cfNode{leaf: node.leaf}
	for i, e := range node.entries {
		switch {
		case i == a:
			left.entries = append(left.entries, e)
		case i == b:
			right.entries = append(right.entries, e)
		case e.sqDistance(node.entries[a]) <= e.sqDistance(node.entries[b]):
			left.entries = append(left.entries, e)
		default:
			right.entries = append(right.entries, e)
		}
	}
	return left, right
}

func collectLeaves(node *cfNode, out *[]*feature) {
	for _, e := range node.entries {
		if node.leaf {
			*out = append(*out, e)
			continue
		}
		collectLeaves(e.child, out)
	}
}
