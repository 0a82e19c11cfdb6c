package movie

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/reelrag/reelrag/internal/domain"
)

func stageDoc(t *testing.T, stage bson.D, name string) bson.D {
	t.Helper()
	if len(stage) != 1 || stage[0].Key != name {
		t.Fatalf("expected single %s stage, got %v", name, stage)
	}
	d, ok := stage[0].Value.(bson.D)
	if !ok {
		t.Fatalf("%s value is not bson.D: %T", name, stage[0].Value)
	}
	return d
}

func fieldValue(t *testing.T, d bson.D, key string) any {
	t.Helper()
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	t.Fatalf("field %q not found in %v", key, d)
	return nil
}

func TestBuildVectorSearchPipeline_OverFetch(t *testing.T) {
	vec := []float32{0.1, 0.2, 0.3}

	for _, limit := range []int{1, 3, 5, 20} {
		pipeline := buildVectorSearchPipeline("movie_embeddings_index", "plot_embedding", vec, limit)
		if len(pipeline) != 2 {
			t.Fatalf("expected 2 stages, got %d", len(pipeline))
		}

		search := stageDoc(t, pipeline[0], "$vectorSearch")
		if got := fieldValue(t, search, "numCandidates"); got != limit*10 {
			t.Errorf("limit=%d: numCandidates = %v, want %d", limit, got, limit*10)
		}
		if got := fieldValue(t, search, "limit"); got != limit {
			t.Errorf("limit=%d: limit field = %v", limit, got)
		}
	}
}

func TestBuildVectorSearchPipeline_IndexAndPath(t *testing.T) {
	pipeline := buildVectorSearchPipeline("idx", "plot_embedding", []float32{1}, 5)

	search := stageDoc(t, pipeline[0], "$vectorSearch")
	if got := fieldValue(t, search, "index"); got != "idx" {
		t.Errorf("index = %v, want idx", got)
	}
	if got := fieldValue(t, search, "path"); got != "plot_embedding" {
		t.Errorf("path = %v, want plot_embedding", got)
	}
}

func TestBuildVectorSearchPipeline_Projection(t *testing.T) {
	pipeline := buildVectorSearchPipeline("idx", "plot_embedding", []float32{1}, 5)

	project := stageDoc(t, pipeline[1], "$project")
	for _, f := range []string{"_id", "title", "plot", "year", "genres", "cast"} {
		if got := fieldValue(t, project, f); got != 1 {
			t.Errorf("projection of %q = %v, want 1", f, got)
		}
	}

	score, ok := fieldValue(t, project, "score").(bson.D)
	if !ok {
		t.Fatal("score projection is not bson.D")
	}
	if got := fieldValue(t, score, "$meta"); got != "vectorSearchScore" {
		t.Errorf("score $meta = %v, want vectorSearchScore", got)
	}
}

func TestMissingEmbeddingFilter(t *testing.T) {
	filter := missingEmbeddingFilter("plot_embedding")

	plot, ok := fieldValue(t, filter, "plot").(bson.D)
	if !ok {
		t.Fatal("plot condition is not bson.D")
	}
	if got := fieldValue(t, plot, "$exists"); got != true {
		t.Errorf("plot $exists = %v, want true", got)
	}
	nin, ok := fieldValue(t, plot, "$nin").(bson.A)
	if !ok || len(nin) != 2 {
		t.Fatalf("plot $nin = %v, want [nil, \"\"]", fieldValue(t, plot, "$nin"))
	}

	emb, ok := fieldValue(t, filter, "plot_embedding").(bson.D)
	if !ok {
		t.Fatal("plot_embedding condition is not bson.D")
	}
	if got := fieldValue(t, emb, "$exists"); got != false {
		t.Errorf("plot_embedding $exists = %v, want false", got)
	}
}

func TestMovieDocToDomain_HexID(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := movieDoc{
		ID:     oid,
		Title:  "Blade Runner",
		Plot:   "replicants",
		Year:   1982,
		Genres: []string{"Sci-Fi"},
		Cast:   []string{"Harrison Ford"},
	}

	m := doc.toDomain()
	if m.ID != oid.Hex() {
		t.Errorf("id = %q, want hex %q", m.ID, oid.Hex())
	}
	if m.Title != "Blade Runner" || m.Year != 1982 {
		t.Errorf("unexpected projection: %+v", m)
	}
}

func TestHitDocToDomain_CarriesScore(t *testing.T) {
	doc := hitDoc{
		movieDoc: movieDoc{ID: primitive.NewObjectID(), Title: "Moon"},
		Score:    0.93,
	}

	h := doc.toDomain()
	if h.Score != 0.93 {
		t.Errorf("score = %v, want 0.93", h.Score)
	}
	if h.Title != "Moon" {
		t.Errorf("title = %q", h.Title)
	}
}

func TestGet_MalformedID(t *testing.T) {
	r := New(nil, "idx", "plot_embedding")

	_, err := r.Get(context.Background(), "not-a-hex-id")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrMalformedID) {
		t.Errorf("expected ErrMalformedID, got %v", err)
	}
}

func TestUpdateVector_MalformedID(t *testing.T) {
	r := New(nil, "idx", "plot_embedding")

	_, err := r.UpdateVector(context.Background(), "zzz", []float32{1, 2})
	if !errors.Is(err, domain.ErrMalformedID) {
		t.Errorf("expected ErrMalformedID, got %v", err)
	}
}
