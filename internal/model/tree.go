package model

import (
	"math"
	"sort"
)

// treeNode is one node of a regression tree. Leaves carry Value;
// internal nodes carry the split and its squared-error reduction, which
// feeds gain-based feature importance.
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Value     float64   `json:"value,omitempty"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Gain      float64   `json:"gain,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// predict walks the tree for one row
func (n *treeNode) predict(row []float64) float64 {
	node := n
	for !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// accumulateGain adds each split's gain to the per-feature totals
func (n *treeNode) accumulateGain(totals []float64) {
	if n == nil || n.Leaf {
		return
	}
	totals[n.Feature] += n.Gain
	n.Left.accumulateGain(totals)
	n.Right.accumulateGain(totals)
}

// treeBuilder grows one least-squares regression tree on a subsample of
// rows
type treeBuilder struct {
	x              [][]float64
	y              []float64
	maxDepth       int
	minSamplesLeaf int
}

func (b *treeBuilder) build(indices []int, depth int) *treeNode {
	if depth >= b.maxDepth || len(indices) < 2*b.minSamplesLeaf {
		return &treeNode{Leaf: true, Value: b.mean(indices)}
	}

	feature, threshold, gain, ok := b.bestSplit(indices)
	if !ok {
		return &treeNode{Leaf: true, Value: b.mean(indices)}
	}

	var left, right []int
	for _, i := range indices {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.minSamplesLeaf || len(right) < b.minSamplesLeaf {
		return &treeNode{Leaf: true, Value: b.mean(indices)}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Gain:      gain,
		Left:      b.build(left, depth+1),
		Right:     b.build(right, depth+1),
	}
}

func (b *treeBuilder) mean(indices []int) float64 {
	sum := 0.0
	for _, i := range indices {
		sum += b.y[i]
	}
	return sum / float64(len(indices))
}

// bestSplit scans every feature for the threshold with the largest
// squared-error reduction. Candidate thresholds are midpoints between
// consecutive distinct feature values.
func (b *treeBuilder) bestSplit(indices []int) (feature int, threshold, gain float64, ok bool) {
	n := len(indices)
	if n < 2 {
		return 0, 0, 0, false
	}

	totalSum := 0.0
	totalSq := 0.0
	for _, i := range indices {
		totalSum += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)

	bestGain := 0.0
	sorted := make([]int, n)

	for f := 0; f < len(b.x[indices[0]]); f++ {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})

		leftSum := 0.0
		leftSq := 0.0
		for k := 0; k < n-1; k++ {
			i := sorted[k]
			leftSum += b.y[i]
			leftSq += b.y[i] * b.y[i]

			// No split between identical feature values
			cur := b.x[i][f]
			next := b.x[sorted[k+1]][f]
			if cur == next {
				continue
			}

			nLeft := float64(k + 1)
			nRight := float64(n - k - 1)
			if k+1 < b.minSamplesLeaf || n-k-1 < b.minSamplesLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nLeft) + (rightSq - rightSum*rightSum/nRight)

			if g := parentSSE - sse; g > bestGain {
				bestGain = g
				feature = f
				threshold = (cur + next) / 2
				ok = true
			}
		}
	}

	if !ok || bestGain <= 1e-12 || math.IsNaN(bestGain) {
		return 0, 0, 0, false
	}
	return feature, threshold, bestGain, true
}
