// Package movies exposes plain catalog reads: paginated listing and fetch by
// identifier.
package movies

import (
	"context"
	"fmt"

	"github.com/reelrag/reelrag/internal/domain"
)

// Listing bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Service handles movie listing and retrieval.
type Service struct {
	repo Repository
}

// New creates a movies service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of movies. limit is bounded to [1, MaxLimit], skip must
// be non-negative.
func (s *Service) List(ctx context.Context, limit, skip int) ([]domain.Movie, error) {
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, MaxLimit)
	}
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", domain.ErrValidation)
	}

	movies, err := s.repo.List(ctx, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// Get returns one movie by hex id. The repository distinguishes malformed
// identifiers from absent documents; both pass through unchanged.
func (s *Service) Get(ctx context.Context, id string) (domain.Movie, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("get movie: %w", err)
	}
	return m, nil
}
