package domain

// Movie is the document projection crossing the repository boundary.
// IDs are always hex strings here; ObjectIDs never leave the repository.
type Movie struct {
	ID     string   `json:"_id"`
	Title  string   `json:"title"`
	Plot   string   `json:"plot,omitempty"`
	Year   int      `json:"year,omitempty"`
	Genres []string `json:"genres,omitempty"`
	Cast   []string `json:"cast,omitempty"`
}

// SearchHit is a movie projection plus the similarity score supplied by the
// store's vector index. Higher means more similar.
type SearchHit struct {
	Movie
	Score float64 `json:"score"`
}

// SearchResponse echoes the query and carries hits in store order.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

// BackfillResult summarizes one backfill pass. Partial persist failures lower
// Processed but keep Success true; the pass has no retry queue.
type BackfillResult struct {
	Success   bool   `json:"success"`
	Processed int    `json:"processed"`
	Message   string `json:"message"`
}

// EmbeddingStats reports vector coverage over the collection.
type EmbeddingStats struct {
	TotalMovies          int64   `json:"total_movies"`
	WithEmbeddings       int64   `json:"with_embeddings"`
	WithoutEmbeddings    int64   `json:"without_embeddings"`
	CompletionPercentage float64 `json:"completion_percentage"`
}
