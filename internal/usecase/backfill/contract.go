package backfill

import (
	"context"

	"github.com/reelrag/reelrag/internal/domain"
)

// Repository defines the storage contract for the embedding backfill.
type Repository interface {
	// FindMissingEmbeddings returns a page of movies with text but no vector.
	FindMissingEmbeddings(ctx context.Context, limit, skip int) ([]domain.Movie, error)
	// UpdateVector persists one vector; false means the document was missing
	// or unchanged, which is not an error.
	UpdateVector(ctx context.Context, id string, vector []float32) (bool, error)
}

// Embedder vectorizes a batch of texts in one call.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
