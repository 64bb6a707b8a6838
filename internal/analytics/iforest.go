package analytics

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// IsolationForest isolates samples with random axis-aligned splits.
// Anomalous samples isolate in shorter paths, so the average path length
// across an ensemble of random trees ranks how unusual each sample is.
// Trees are built from a fixed seed so repeated runs on the same data
// score identically.
type IsolationForest struct {
	Trees     int
	Subsample int
	Seed      int64

	roots []*iNode
	psi   int
}

// defaults follow the usual ensemble sizing: enough trees for stable
// scores, a small subsample so each tree stays shallow.
const (
	defaultTrees     = 200
	defaultSubsample = 256
	defaultSeed      = 42
)

type iNode struct {
	attr  int
	split float64
	left  *iNode
	right *iNode

	// size is set on external nodes only: the number of samples that
	// reached this node during building.
	size int
}

// NewIsolationForest returns an unfitted forest with production defaults.
func NewIsolationForest() *IsolationForest {
	return &IsolationForest{Trees: defaultTrees, Subsample: defaultSubsample, Seed: defaultSeed}
}

// Fit builds the ensemble over the rows of x.
func (f *IsolationForest) Fit(x *mat.Dense) {
	n, d := x.Dims()
	rng := rand.New(rand.NewSource(f.Seed))

	f.psi = f.Subsample
	if f.psi > n {
		f.psi = n
	}
	depthLimit := int(math.Ceil(math.Log2(math.Max(float64(f.psi), 2))))

	f.roots = make([]*iNode, f.Trees)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for t := 0; t < f.Trees; t++ {
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		sample := make([]int, f.psi)
		copy(sample, idx[:f.psi])
		f.roots[t] = buildTree(x, sample, d, 0, depthLimit, rng)
	}
}

func buildTree(x *mat.Dense, idx []int, d, depth, limit int, rng *rand.Rand) *iNode {
	if depth >= limit || len(idx) <= 1 {
		return &iNode{size: len(idx)}
	}

	// Candidate attributes must have spread among the current samples.
	type span struct {
		attr     int
		min, max float64
	}
	var spans []span
	for a := 0; a < d; a++ {
		lo, hi := x.At(idx[0], a), x.At(idx[0], a)
		for _, i := range idx[1:] {
			v := x.At(i, a)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi > lo {
			spans = append(spans, span{a, lo, hi})
		}
	}
	if len(spans) == 0 {
		// All remaining samples identical.
		return &iNode{size: len(idx)}
	}

	s := spans[rng.Intn(len(spans))]
	split := s.min + rng.Float64()*(s.max-s.min)

	var left, right []int
	for _, i := range idx {
		if x.At(i, s.attr) < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &iNode{
		attr:  s.attr,
		split: split,
		left:  buildTree(x, left, d, depth+1, limit, rng),
		right: buildTree(x, right, d, depth+1, limit, rng),
	}
}

// pathLength follows row through one tree, crediting external nodes with
// the expected remaining depth of an unbuilt subtree of their size.
func pathLength(node *iNode, x *mat.Dense, row, depth int) float64 {
	for node.left != nil {
		if x.At(row, node.attr) < node.split {
			node = node.left
		} else {
			node = node.right
		}
		depth++
	}
	return float64(depth) + avgPathLength(node.size)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search among n samples.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		nf := float64(n)
		return 2*(math.Log(nf-1)+0.5772156649) - 2*(nf-1)/nf
	}
}

// ScoreSamples returns one raw score per row, lower meaning more
// anomalous. The raw score is the negated ensemble anomaly score
// 2^(-E[h]/c(psi)), so values live in [-1, 0).
func (f *IsolationForest) ScoreSamples(x *mat.Dense) []float64 {
	n, _ := x.Dims()
	denom := avgPathLength(f.psi)
	if denom == 0 {
		denom = 1
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for _, root := range f.roots {
			sum += pathLength(root, x, i, 0)
		}
		mean := sum / float64(len(f.roots))
		out[i] = -math.Exp2(-mean / denom)
	}
	return out
}
