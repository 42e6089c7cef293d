package model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

const (
	// DefaultEstimators is the default number of trees
	DefaultEstimators = 100
	// DefaultMaxSamples caps the subsample drawn for each tree
	DefaultMaxSamples = 256

	eulerGamma = 0.5772156649
)

// IsolationForestConfig configures an IsolationForest
type IsolationForestConfig struct {
	Estimators    int
	MaxSamples    int
	Contamination float64
	Seed          uint64
}

// IsolationForest isolates points with random axis-aligned splits.
// Anomalies need fewer splits, so their average path length is short.
type IsolationForest struct {
	cfg IsolationForestConfig
}

// Forest is a fitted IsolationForest
type Forest struct {
	width      int
	sampleSize int
	trees      []*node
	offset     float64
}

var (
	_ Detector = (*IsolationForest)(nil)
	_ Model    = (*Forest)(nil)
)

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	size      int // samples reaching a leaf
}

// NewIsolationForest validates the config and fills in defaults
func NewIsolationForest(cfg IsolationForestConfig) (*IsolationForest, error) {
	if cfg.Estimators == 0 {
		cfg.Estimators = DefaultEstimators
	}
	if cfg.MaxSamples == 0 {
		cfg.MaxSamples = DefaultMaxSamples
	}
	if cfg.Estimators < 0 {
		return nil, fmt.Errorf("estimators must be positive, got %d", cfg.Estimators)
	}
	if cfg.MaxSamples < 0 {
		return nil, fmt.Errorf("max samples must be positive, got %d", cfg.MaxSamples)
	}
	if !(cfg.Contamination > 0 && cfg.Contamination <= 0.5) {
		return nil, fmt.Errorf("contamination must be in (0, 0.5], got %v", cfg.Contamination)
	}
	return &IsolationForest{cfg: cfg}, nil
}

// Fit grows the trees and sets the decision offset so that roughly the
// contamination fraction of the training rows falls below it.
func (d *IsolationForest) Fit(x [][]float64) (Model, error) {
	f, err := d.FitForest(x)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// FitForest is Fit returning the concrete forest
func (d *IsolationForest) FitForest(x [][]float64) (*Forest, error) {
	if err := checkMatrix(x, 0); err != nil {
		return nil, err
	}
	width := len(x[0])

	f := &Forest{
		width:      width,
		sampleSize: min(d.cfg.MaxSamples, len(x)),
	}
	maxDepth := int(math.Ceil(math.Log2(float64(max(f.sampleSize, 2)))))

	rng := rand.New(rand.NewPCG(d.cfg.Seed, d.cfg.Seed^0x9e3779b97f4a7c15))
	f.trees = make([]*node, d.cfg.Estimators)
	idx := make([]int, len(x))
	for t := range f.trees {
		for i := range idx {
			idx[i] = i
		}
		// partial Fisher-Yates for a sample without replacement
		for i := 0; i < f.sampleSize; i++ {
			j := i + rng.IntN(len(idx)-i)
			idx[i], idx[j] = idx[j], idx[i]
		}
		sample := make([]int, f.sampleSize)
		copy(sample, idx[:f.sampleSize])
		f.trees[t] = grow(x, sample, 0, maxDepth, width, rng)
	}

	scores, err := f.ScoreSamples(x)
	if err != nil {
		return nil, err
	}
	f.offset = Percentile(scores, 100*d.cfg.Contamination)
	return f, nil
}

func grow(x [][]float64, rows []int, depth, maxDepth, width int, rng *rand.Rand) *node {
	if depth >= maxDepth || len(rows) <= 1 {
		return &node{size: len(rows)}
	}

	// only split on features that vary within this node
	candidates := make([]int, 0, width)
	lo := make([]float64, width)
	hi := make([]float64, width)
	for j := 0; j < width; j++ {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			v := x[r][j]
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
		if hi[j] > lo[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(rows)}
	}

	feature := candidates[rng.IntN(len(candidates))]
	threshold := lo[feature] + rng.Float64()*(hi[feature]-lo[feature])

	var left, right []int
	for _, r := range rows {
		if x[r][feature] < threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      grow(x, left, depth+1, maxDepth, width, rng),
		right:     grow(x, right, depth+1, maxDepth, width, rng),
	}
}

func (n *node) pathLength(row []float64) float64 {
	depth := 0.0
	for n.left != nil {
		if row[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return depth + averagePathLength(n.size)
}

// averagePathLength is the expected path length of an unsuccessful search
// in a binary search tree built from n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n - 1)
	return 2*(math.Log(m)+eulerGamma) - 2*m/float64(n)
}

// ScoreSamples returns the negated anomaly score of each row, in [-1, 0).
// Lower is more anomalous.
func (f *Forest) ScoreSamples(x [][]float64) ([]float64, error) {
	if err := checkMatrix(x, f.width); err != nil {
		return nil, err
	}

	norm := averagePathLength(f.sampleSize)
	scores := make([]float64, len(x))
	for i, row := range x {
		total := 0.0
		for _, tree := range f.trees {
			total += tree.pathLength(row)
		}
		mean := total / float64(len(f.trees))
		if norm == 0 {
			scores[i] = -0.5
			continue
		}
		scores[i] = -math.Pow(2, -mean/norm)
	}
	return scores, nil
}

// DecisionFunction is ScoreSamples shifted by the fitted offset.
// Negative values are outliers.
func (f *Forest) DecisionFunction(x [][]float64) ([]float64, error) {
	scores, err := f.ScoreSamples(x)
	if err != nil {
		return nil, err
	}
	for i := range scores {
		scores[i] -= f.offset
	}
	return scores, nil
}

// Predict labels each row Inlier or Outlier and returns the decision
// function as the score.
func (f *Forest) Predict(x [][]float64) ([]int, []float64, error) {
	decision, err := f.DecisionFunction(x)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]int, len(decision))
	for i, d := range decision {
		if d < 0 {
			labels[i] = Outlier
		} else {
			labels[i] = Inlier
		}
	}
	return labels, decision, nil
}

// Offset returns the threshold subtracted from raw scores
func (f *Forest) Offset() float64 {
	return f.offset
}

// Percentile returns the p-th percentile of values using linear
// interpolation between closest ranks.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
