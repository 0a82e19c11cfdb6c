package movie

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/reelrag/reelrag/internal/domain"
)

// movieDoc is the bson shape of a movie document. ObjectIDs stay in this
// package; every outbound conversion projects them to hex strings.
type movieDoc struct {
	ID     primitive.ObjectID `bson:"_id"`
	Title  string             `bson:"title"`
	Plot   string             `bson:"plot,omitempty"`
	Year   int                `bson:"year,omitempty"`
	Genres []string           `bson:"genres,omitempty"`
	Cast   []string           `bson:"cast,omitempty"`
}

// hitDoc is movieDoc plus the similarity score projected by $vectorSearch.
type hitDoc struct {
	movieDoc `bson:",inline"`
	Score    float64 `bson:"score"`
}

func (d *movieDoc) toDomain() domain.Movie {
	return domain.Movie{
		ID:     d.ID.Hex(),
		Title:  d.Title,
		Plot:   d.Plot,
		Year:   d.Year,
		Genres: d.Genres,
		Cast:   d.Cast,
	}
}

func (d *hitDoc) toDomain() domain.SearchHit {
	return domain.SearchHit{Movie: d.movieDoc.toDomain(), Score: d.Score}
}

// overFetchFactor is the candidate over-fetch multiplier for $vectorSearch.
// Fixed tuning constant trading recall for latency; callers cannot override it.
const overFetchFactor = 10

// buildVectorSearchPipeline assembles the Atlas $vectorSearch aggregation:
// over-fetched candidate set, store-side ranking and truncation to limit, and
// a fixed projection carrying the similarity score.
func buildVectorSearchPipeline(index, path string, vector []float32, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: index},
			{Key: "path", Value: path},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: limit * overFetchFactor},
			{Key: "limit", Value: limit},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "title", Value: 1},
			{Key: "plot", Value: 1},
			{Key: "year", Value: 1},
			{Key: "genres", Value: 1},
			{Key: "cast", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}
}

// missingEmbeddingFilter selects documents with a non-empty plot and no stored
// vector. Backfill idempotence rests on this filter: once a vector is
// persisted the document never matches again.
func missingEmbeddingFilter(vectorField string) bson.D {
	return bson.D{
		{Key: "plot", Value: bson.D{
			{Key: "$exists", Value: true},
			{Key: "$nin", Value: bson.A{nil, ""}},
		}},
		{Key: vectorField, Value: bson.D{{Key: "$exists", Value: false}}},
	}
}

// embeddedFilter selects documents that already carry a stored vector.
func embeddedFilter(vectorField string) bson.D {
	return bson.D{{Key: vectorField, Value: bson.D{{Key: "$exists", Value: true}}}}
}
