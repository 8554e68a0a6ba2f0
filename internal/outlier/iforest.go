package outlier

import (
	"math"
	"math/rand"
	"sort"
)

// IsolationForest is a deterministic isolation-forest classifier. All
// randomness comes from the configured seed, so the same population
// always produces the same labels. The contamination fraction decides
// how many of the highest-scoring rows are flagged, which makes the
// output population-relative by construction.
type IsolationForest struct {
	Estimators    int
	Contamination float64
	SubsampleSize int
	Seed          int64
}

// NewIsolationForest returns a forest with the given contamination
// fraction and seed, and defaults for the remaining parameters.
func NewIsolationForest(contamination float64, seed int64, estimators int) *IsolationForest {
	if estimators <= 0 {
		estimators = 100
	}
	return &IsolationForest{
		Estimators:    estimators,
		Contamination: contamination,
		SubsampleSize: 256,
		Seed:          seed,
	}
}

type ifNode struct {
	left, right *ifNode
	feature     int
	split       float64
	size        int
}

// Classify implements Classifier.
func (f *IsolationForest) Classify(features [][]float64) []bool {
	n := len(features)
	flags := make([]bool, n)
	if n < 2 {
		return flags
	}

	sub := f.SubsampleSize
	if sub <= 0 || sub > n {
		sub = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sub))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	rng := rand.New(rand.NewSource(f.Seed))

	trees := make([]*ifNode, f.Estimators)
	for t := range trees {
		perm := rng.Perm(n)
		sample := make([][]float64, sub)
		for i := 0; i < sub; i++ {
			sample[i] = features[perm[i]]
		}
		trees[t] = buildTree(sample, 0, heightLimit, rng)
	}

	norm := avgPathLength(sub)
	scores := make([]float64, n)
	for i, row := range features {
		total := 0.0
		for _, tree := range trees {
			total += pathLength(tree, row, 0)
		}
		mean := total / float64(len(trees))
		scores[i] = math.Pow(2, -mean/norm)
	}

	// Flag the top contamination fraction by anomaly score.
	k := int(f.Contamination * float64(n))
	if k <= 0 {
		return flags
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	for i := 0; i < k; i++ {
		flags[order[i]] = true
	}
	return flags
}

func buildTree(data [][]float64, depth, heightLimit int, rng *rand.Rand) *ifNode {
	if len(data) <= 1 || depth >= heightLimit {
		return &ifNode{size: len(data)}
	}

	dims := len(data[0])
	// Pick a feature with spread; give up after trying them all.
	candidates := rng.Perm(dims)
	for _, q := range candidates {
		lo, hi := data[0][q], data[0][q]
		for _, row := range data {
			if row[q] < lo {
				lo = row[q]
			}
			if row[q] > hi {
				hi = row[q]
			}
		}
		if hi <= lo {
			continue
		}

		split := lo + rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, row := range data {
			if row[q] < split {
				left = append(left, row)
			} else {
				right = append(right, row)
			}
		}
		return &ifNode{
			feature: q,
			split:   split,
			left:    buildTree(left, depth+1, heightLimit, rng),
			right:   buildTree(right, depth+1, heightLimit, rng),
		}
	}

	// All rows identical on every feature.
	return &ifNode{size: len(data)}
}

func pathLength(node *ifNode, row []float64, depth int) float64 {
	if node.left == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if row[node.feature] < node.split {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// avgPathLength is c(n), the average path length of an unsuccessful
// BST search, used to normalize isolation depths.
func avgPathLength(n int) float64 {
	switch {
	case n > 2:
		h := math.Log(float64(n-1)) + 0.5772156649
		return 2*h - 2*float64(n-1)/float64(n)
	case n == 2:
		return 1
	default:
		return 0
	}
}
