package segmenter

import (
	"fmt"
	"math"
)

// ClusterOptions tunes speaker clustering.
type ClusterOptions struct {
	// MaxSpeakers caps the candidate cluster count.
	MaxSpeakers int
	// SimilarityThreshold is the cosine distance above which two lone
	// embeddings are treated as distinct speakers.
	SimilarityThreshold float64
}

// ClusterResult carries the per-window speaker labels and the winning
// cluster count with its silhouette score for diagnostics.
type ClusterResult struct {
	Labels     []int
	K          int
	Silhouette float64
}

// ClusterSpeakers groups window embeddings into speaker identities using
// average-linkage agglomerative clustering over cosine distance, selecting
// the cluster count by silhouette score. Zero vectors (windows too short to
// embed) are excluded from clustering and inherit the previous window's
// label. The result is deterministic for a fixed input order.
func ClusterSpeakers(windows []Window, opts ClusterOptions) (ClusterResult, error) {
	if opts.MaxSpeakers < 2 {
		return ClusterResult{}, fmt.Errorf("%w: max speakers %d < 2", ErrBadConfig, opts.MaxSpeakers)
	}
	n := len(windows)
	if n == 0 {
		return ClusterResult{K: 0}, nil
	}

	valid := make([]int, 0, n)
	dim := -1
	for i, w := range windows {
		if !nonZero(w.Vector) {
			continue
		}
		if dim == -1 {
			dim = len(w.Vector)
		} else if len(w.Vector) != dim {
			return ClusterResult{}, fmt.Errorf("%w: window %d has dim %d, want %d",
				ErrDimensionMismatch, i, len(w.Vector), dim)
		}
		valid = append(valid, i)
	}

	labels := make([]int, n)
	if len(valid) < 2 {
		return ClusterResult{Labels: labels, K: 1}, nil
	}

	points := make([][]float64, len(valid))
	for i, idx := range valid {
		points[i] = windows[idx].Vector
	}
	dist := distanceMatrix(points)

	var validLabels []int
	k := 1
	score := 0.0
	if len(valid) == 2 {
		if dist[0][1] > opts.SimilarityThreshold {
			validLabels, k = []int{0, 1}, 2
		} else {
			validLabels, k = []int{0, 0}, 1
		}
	} else {
		maxK := opts.MaxSpeakers
		if m := len(valid) - 1; m < maxK {
			maxK = m
		}
		validLabels, k, score = bestClustering(dist, maxK)
	}

	for i, idx := range valid {
		labels[idx] = validLabels[i] + 1 // shift so 0 marks "unassigned"
	}
	prev := 0
	for i := range labels {
		if labels[i] == 0 {
			labels[i] = prev
		} else {
			prev = labels[i]
		}
	}
	for i := range labels {
		if labels[i] > 0 {
			labels[i]--
		}
	}
	return ClusterResult{Labels: labels, K: k, Silhouette: score}, nil
}

// bestClustering agglomerates from n singleton clusters down to 2 and scores
// every level in [2, maxK], returning the labels of the level with the best
// silhouette. Ties keep the smaller cluster count.
func bestClustering(dist [][]float64, maxK int) (labels []int, k int, score float64) {
	n := len(dist)
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	type level struct {
		labels []int
		k      int
		score  float64
	}
	var best *level

	for len(clusters) > 2 {
		clusters = mergeClosest(clusters, dist)
		if len(clusters) <= maxK {
			l := labelsOf(clusters, n)
			s := silhouette(dist, l, len(clusters))
			if best == nil || s > best.score ||
				(s == best.score && len(clusters) < best.k) {
				best = &level{labels: l, k: len(clusters), score: s}
			}
		}
	}
	if best == nil {
		// maxK < 2 cannot happen here; keep the final 2-way cut as a
		// fallback mirroring the unconditional 2-cluster default.
		l := labelsOf(clusters, n)
		return l, 2, silhouette(dist, l, 2)
	}
	return best.labels, best.k, best.score
}

// mergeClosest joins the pair of clusters with the smallest average pairwise
// distance. Distance ties resolve to the lexicographically smallest pair so
// repeated runs agree.
func mergeClosest(clusters [][]int, dist [][]float64) [][]int {
	bi, bj := 0, 1
	bd := math.Inf(1)
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			d := avgLinkage(clusters[i], clusters[j], dist)
			if d < bd {
				bd, bi, bj = d, i, j
			}
		}
	}
	merged := append(append([]int{}, clusters[bi]...), clusters[bj]...)
	out := make([][]int, 0, len(clusters)-1)
	for i, c := range clusters {
		if i == bj {
			continue
		}
		if i == bi {
			out = append(out, merged)
			continue
		}
		out = append(out, c)
	}
	return out
}

func avgLinkage(a, b []int, dist [][]float64) float64 {
	sum := 0.0
	for _, i := range a {
		for _, j := range b {
			sum += dist[i][j]
		}
	}
	return sum / float64(len(a)*len(b))
}

// labelsOf numbers clusters by their smallest member index so labeling does
// not depend on merge bookkeeping.
func labelsOf(clusters [][]int, n int) []int {
	firsts := make([]int, len(clusters))
	for i, c := range clusters {
		first := c[0]
		for _, m := range c {
			if m < first {
				first = m
			}
		}
		firsts[i] = first
	}
	order := make([]int, len(clusters))
	for i := range order {
		order[i] = i
	}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if firsts[order[j]] < firsts[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	rank := make([]int, len(clusters))
	for r, ci := range order {
		rank[ci] = r
	}
	labels := make([]int, n)
	for ci, c := range clusters {
		for _, m := range c {
			labels[m] = rank[ci]
		}
	}
	return labels
}

// silhouette computes the mean silhouette coefficient. Points in singleton
// clusters score zero.
func silhouette(dist [][]float64, labels []int, k int) float64 {
	n := len(labels)
	size := make([]int, k)
	for _, l := range labels {
		size[l]++
	}
	total := 0.0
	for i := 0; i < n; i++ {
		if size[labels[i]] < 2 {
			continue
		}
		sums := make([]float64, k)
		for j := 0; j < n; j++ {
			if j != i {
				sums[labels[j]] += dist[i][j]
			}
		}
		a := sums[labels[i]] / float64(size[labels[i]]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == labels[i] || size[c] == 0 {
				continue
			}
			if m := sums[c] / float64(size[c]); m < b {
				b = m
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}

func distanceMatrix(points [][]float64) [][]float64 {
	n := len(points)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := cosineDistance(points[i], points[j])
			dist[i][j], dist[j][i] = d, d
		}
	}
	return dist
}

func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func nonZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return true
		}
	}
	return false
}

// ChangePoints derives speaker-change timestamps: wherever two consecutive
// windows carry different labels, the change lands on the midpoint between
// the first window's end and the second window's start (the shared boundary
// when windows are contiguous).
func ChangePoints(windows []Window, labels []int) []float64 {
	if len(windows) != len(labels) {
		return nil
	}
	var out []float64
	for i := 1; i < len(labels); i++ {
		if labels[i] != labels[i-1] {
			out = append(out, (windows[i-1].End+windows[i].Start)/2)
		}
	}
	return out
}
