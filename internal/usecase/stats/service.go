// Package stats reports embedding coverage over the movie collection.
package stats

import (
	"context"
	"fmt"
	"math"

	"github.com/reelrag/reelrag/internal/domain"
)

// Repository defines the counting contract.
type Repository interface {
	Count(ctx context.Context) (int64, error)
	CountEmbedded(ctx context.Context) (int64, error)
}

// Service computes embedding statistics.
type Service struct {
	repo Repository
}

// New creates a stats service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Stats returns total/embedded/unembedded counts and a completion percentage.
// An empty collection reports 0%, never a division fault.
func (s *Service) Stats(ctx context.Context) (domain.EmbeddingStats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return domain.EmbeddingStats{}, fmt.Errorf("count movies: %w", err)
	}

	embedded, err := s.repo.CountEmbedded(ctx)
	if err != nil {
		return domain.EmbeddingStats{}, fmt.Errorf("count embedded movies: %w", err)
	}

	stats := domain.EmbeddingStats{
		TotalMovies:       total,
		WithEmbeddings:    embedded,
		WithoutEmbeddings: total - embedded,
	}
	if total > 0 {
		pct := float64(embedded) / float64(total) * 100
		stats.CompletionPercentage = math.Round(pct*100) / 100
	}
	return stats, nil
}
