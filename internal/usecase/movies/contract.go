package movies

import (
	"context"

	"github.com/reelrag/reelrag/internal/domain"
)

// Repository defines the storage contract for movie reads.
type Repository interface {
	List(ctx context.Context, limit, skip int) ([]domain.Movie, error)
	Get(ctx context.Context, id string) (domain.Movie, error)
}
