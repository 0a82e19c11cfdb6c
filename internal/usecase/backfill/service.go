// Package backfill assigns vectors to movies that lack them, one page per
// invocation. Idempotence comes from the selection filter: an embedded movie
// never matches again, so re-running is always safe.
package backfill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reelrag/reelrag/internal/domain"
	"github.com/reelrag/reelrag/internal/logger"
)

// Page bounds per invocation.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Service runs the embedding backfill.
type Service struct {
	repo     Repository
	embed    Embedder
	maxLimit int
}

// New creates a backfill service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed, maxLimit: MaxLimit}
}

// WithMaxLimit overrides the per-invocation page bound.
func (s *Service) WithMaxLimit(limit int) *Service {
	if limit > 0 {
		s.maxLimit = limit
	}
	return s
}

// Run processes one page: select up to limit unembedded movies at offset skip,
// embed their plots in a single batch, persist sequentially. Callers advance
// skip (or re-invoke with skip=0) until zero matches remain; no resumption
// token is kept here.
func (s *Service) Run(ctx context.Context, limit, skip int) (domain.BackfillResult, error) {
	if limit < 1 || limit > s.maxLimit {
		return domain.BackfillResult{}, fmt.Errorf(
			"%w: limit must be between 1 and %d", domain.ErrValidation, s.maxLimit)
	}
	if skip < 0 {
		return domain.BackfillResult{}, fmt.Errorf("%w: skip must not be negative", domain.ErrValidation)
	}

	selected, err := s.repo.FindMissingEmbeddings(ctx, limit, skip)
	if err != nil {
		return domain.BackfillResult{}, fmt.Errorf("select unembedded movies: %w", err)
	}

	if len(selected) == 0 {
		return domain.BackfillResult{
			Success: true,
			Message: "no movies found without embeddings",
		}, nil
	}

	log := logger.FromContext(ctx)
	log.Info("backfill page selected", zap.Int("movies", len(selected)), zap.Int("skip", skip))

	// Parallel (text, id) sequences in selection order.
	plots := make([]string, len(selected))
	ids := make([]string, len(selected))
	for i, m := range selected {
		plots[i] = m.Plot
		ids[i] = m.ID
	}

	batch, err := s.embed.BatchEmbed(ctx, plots)
	if err != nil {
		return domain.BackfillResult{}, fmt.Errorf("embed batch: %w", err)
	}

	// Sequential persistence; only confirmed updates count. Failed updates
	// stay unembedded and are picked up by a later pass.
	updated := 0
	for i, id := range ids {
		ok, err := s.repo.UpdateVector(ctx, id, batch.Embeddings[i])
		if err != nil {
			log.Warn("failed to persist embedding", zap.String("movie_id", id), zap.Error(err))
			continue
		}
		if ok {
			updated++
		}
	}

	return domain.BackfillResult{
		Success:   true,
		Processed: updated,
		Message:   fmt.Sprintf("generated embeddings for %d movies", updated),
	}, nil
}
