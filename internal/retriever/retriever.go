package retriever

import (
	"fmt"
	"sort"
)

// Hit is one ranked corpus index with its dot product score.
type Hit struct {
	Index int
	Score float64
}

// Search scores every corpus vector against query and returns the topK best,
// highest first, ties broken by lower index.
//
// privileged, when non-nil, marks corpus entries that must be represented: if
// the naive selection holds none of them, its last slot is replaced by the
// best scoring privileged entry. A topK covering the whole corpus returns the
// full ranking untouched.
func Search(query []float32, corpus [][]float32, privileged []bool, topK int) ([]Hit, error) {
	if privileged != nil && len(privileged) != len(corpus) {
		return nil, fmt.Errorf("privileged mask has %d entries for %d vectors", len(privileged), len(corpus))
	}
	if len(corpus) == 0 || topK <= 0 {
		return []Hit{}, nil
	}

	ranked := make([]Hit, len(corpus))
	for i, v := range corpus {
		if len(v) != len(query) {
			return nil, fmt.Errorf("vector %d has dimension %d, query has %d", i, len(v), len(query))
		}
		ranked[i] = Hit{Index: i, Score: dot(query, v)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})

	if topK >= len(ranked) {
		return ranked, nil
	}

	top := make([]Hit, topK)
	copy(top, ranked[:topK])
	if privileged == nil {
		return top, nil
	}
	for _, h := range top {
		if privileged[h.Index] {
			return top, nil
		}
	}
	// ranked is sorted, so the first privileged entry past the cut is the
	// best scoring one
	for _, h := range ranked[topK:] {
		if privileged[h.Index] {
			top[topK-1] = h
			break
		}
	}
	return top, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
