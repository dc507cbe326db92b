package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// SimilarityScorer compares texts by cosine similarity of their embeddings.
// Texts are embedded whole; inputs beyond the model's context are handled by the provider.
type SimilarityScorer struct {
	embedder ports.Embedder
}

func NewSimilarityScorer(embedder ports.Embedder) *SimilarityScorer {
	return &SimilarityScorer{embedder: embedder}
}

func (s *SimilarityScorer) Score(ctx context.Context, textA, textB string) (float64, error) {
	a, err := s.Embed(ctx, textA)
	if err != nil {
		return 0, err
	}
	return s.ScoreAgainst(ctx, a, textB)
}

// Embed returns the vector for text, so a submission can be embedded once per run.
func (s *SimilarityScorer) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vec) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed text", errors.New("empty embedding"))
	}
	return vec, nil
}

// ScoreAgainst scores text against an already embedded reference vector.
func (s *SimilarityScorer) ScoreAgainst(ctx context.Context, reference []float32, text string) (float64, error) {
	vec, err := s.Embed(ctx, text)
	if err != nil {
		return 0, err
	}
	return Cosine(reference, vec)
}

// Cosine returns the cosine similarity of a and b in [-1, 1]; zero vectors score 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim)), nil
}
