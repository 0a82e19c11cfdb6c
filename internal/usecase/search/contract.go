package search

import (
	"context"

	"github.com/reelrag/reelrag/internal/domain"
)

// Repository defines the storage contract for vector search.
type Repository interface {
	VectorSearch(ctx context.Context, vector []float32, limit int) ([]domain.SearchHit, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
