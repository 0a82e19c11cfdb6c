// Package search orchestrates the retrieval pipeline: validate, embed the
// query, run vector search, shape the ranked response.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/reelrag/reelrag/internal/domain"
	"github.com/reelrag/reelrag/internal/logger"
)

// Default request bounds.
const (
	DefaultMaxQueryLength = 1000
	DefaultMaxLimit       = 20
)

// Service handles semantic search over the movie collection.
type Service struct {
	repo           Repository
	embed          Embedder
	maxQueryLength int
	maxLimit       int
}

// New creates a search service with default bounds.
func New(repo Repository, embed Embedder) *Service {
	return &Service{
		repo:           repo,
		embed:          embed,
		maxQueryLength: DefaultMaxQueryLength,
		maxLimit:       DefaultMaxLimit,
	}
}

// WithBounds overrides the query length and result limit bounds.
func (s *Service) WithBounds(maxQueryLength, maxLimit int) *Service {
	if maxQueryLength > 0 {
		s.maxQueryLength = maxQueryLength
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// Search embeds the query and returns hits ranked by the store. A zero-vector
// embedding (fail-soft degrade) still searches; the results are just
// meaningless rather than an error.
func (s *Service) Search(ctx context.Context, query string, limit int) (domain.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return domain.SearchResponse{}, fmt.Errorf("%w: query must not be empty", domain.ErrValidation)
	}
	if len(query) > s.maxQueryLength {
		return domain.SearchResponse{}, fmt.Errorf(
			"%w: query exceeds %d characters", domain.ErrValidation, s.maxQueryLength)
	}
	if limit < 1 || limit > s.maxLimit {
		return domain.SearchResponse{}, fmt.Errorf(
			"%w: limit must be between 1 and %d", domain.ErrValidation, s.maxLimit)
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.repo.VectorSearch(ctx, embResult.Embedding, limit)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}

	logger.FromContext(ctx).Debug("search completed",
		zap.Int("limit", limit),
		zap.Int("hits", len(hits)),
		zap.Int("tokens", embResult.TotalTokens),
	)

	// Hits stay in store order; count mirrors the shaped slice.
	return domain.SearchResponse{
		Query:   query,
		Results: hits,
		Count:   len(hits),
	}, nil
}
