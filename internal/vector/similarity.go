package vector

import (
	"math"
	"sort"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine similarity of a and b clamped to [0, 1].
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return utils.Clamp01(InnerProduct(a, b) / (na * nb))
}

// Candidate is a stored chunk considered by brute-force search.
type Candidate struct {
	Content   string
	Metadata  map[string]interface{}
	Embedding []float32
}

// Rank scores candidates against query and returns at most limit matches with
// similarity >= threshold, best first. Ties keep candidate order.
func Rank(candidates []Candidate, query []float32, threshold float64, limit int) []models.SimilarityMatch {
	matches := make([]models.SimilarityMatch, 0)
	if limit <= 0 {
		return matches
	}
	for _, c := range candidates {
		score := CosineSimilarity(query, c.Embedding)
		if score < threshold {
			continue
		}
		matches = append(matches, models.SimilarityMatch{
			Content:    c.Content,
			Metadata:   c.Metadata,
			Similarity: score,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
