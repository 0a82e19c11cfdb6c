// Package movie implements the document store client for the movies
// collection: paginated scans, Atlas vector search, and vector persistence.
package movie

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/reelrag/reelrag/internal/domain"
)

// Repo implements the movie repository over a mongo collection.
type Repo struct {
	coll        *mongo.Collection
	indexName   string
	vectorField string
}

// New creates a movie repository. indexName and vectorField identify the
// Atlas vector search index and the stored vector path.
func New(coll *mongo.Collection, indexName, vectorField string) *Repo {
	return &Repo{coll: coll, indexName: indexName, vectorField: vectorField}
}

// List returns a page of movies in collection order.
func (r *Repo) List(ctx context.Context, limit, skip int) ([]domain.Movie, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, wrapStoreErr("find movies", err)
	}
	defer cur.Close(ctx)

	return decodeMovies(ctx, cur)
}

// Get returns a single movie by hex id. A malformed id and a missing document
// are distinct failures.
func (r *Repo) Get(ctx context.Context, id string) (domain.Movie, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("%w: %q", domain.ErrMalformedID, id)
	}

	var doc movieDoc
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Movie{}, fmt.Errorf("%w: %s", domain.ErrMovieNotFound, id)
		}
		return domain.Movie{}, wrapStoreErr("find movie", err)
	}

	return doc.toDomain(), nil
}

// VectorSearch runs the $vectorSearch aggregation and returns hits in store
// order. The store ranks and truncates; no re-sorting happens here.
func (r *Repo) VectorSearch(ctx context.Context, vector []float32, limit int) ([]domain.SearchHit, error) {
	pipeline := buildVectorSearchPipeline(r.indexName, r.vectorField, vector, limit)

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapStoreErr("vector search", err)
	}
	defer cur.Close(ctx)

	hits := make([]domain.SearchHit, 0, limit)
	for cur.Next(ctx) {
		var doc hitDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode search hit: %w", err)
		}
		hits = append(hits, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, wrapStoreErr("vector search cursor", err)
	}

	return hits, nil
}

// UpdateVector persists a vector on a single document. Returns false, not an
// error, when the target does not exist or the value is unchanged.
func (r *Repo) UpdateVector(ctx context.Context, id string, vector []float32) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %q", domain.ErrMalformedID, id)
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: r.vectorField, Value: vector}}}},
	)
	if err != nil {
		return false, wrapStoreErr("update vector", err)
	}

	return res.ModifiedCount > 0, nil
}

// FindMissingEmbeddings returns a page of movies with a non-empty plot and no
// stored vector, in collection order.
func (r *Repo) FindMissingEmbeddings(ctx context.Context, limit, skip int) ([]domain.Movie, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cur, err := r.coll.Find(ctx, missingEmbeddingFilter(r.vectorField), opts)
	if err != nil {
		return nil, wrapStoreErr("find unembedded movies", err)
	}
	defer cur.Close(ctx)

	return decodeMovies(ctx, cur)
}

// Count returns the total number of movies.
func (r *Repo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrapStoreErr("count movies", err)
	}
	return n, nil
}

// CountEmbedded returns the number of movies carrying a stored vector.
func (r *Repo) CountEmbedded(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, embeddedFilter(r.vectorField))
	if err != nil {
		return 0, wrapStoreErr("count embedded movies", err)
	}
	return n, nil
}

func decodeMovies(ctx context.Context, cur *mongo.Cursor) ([]domain.Movie, error) {
	movies := make([]domain.Movie, 0)
	for cur.Next(ctx) {
		var doc movieDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode movie: %w", err)
		}
		movies = append(movies, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, wrapStoreErr("movie cursor", err)
	}
	return movies, nil
}

// wrapStoreErr classifies driver errors: timeouts and network faults surface
// as ErrStoreUnavailable, everything else keeps its cause.
func wrapStoreErr(op string, err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
