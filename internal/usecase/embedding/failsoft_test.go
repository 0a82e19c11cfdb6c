package embedding

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/reelrag/reelrag/internal/domain"
	"github.com/reelrag/reelrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockProvider struct {
	embedResult domain.EmbeddingResult
	embedErr    error
	embedCalls  int

	batchResult domain.BatchEmbeddingResult
	batchErr    error
	batchCalls  int

	failTexts map[string]bool // per-text Embed failures for fallback tests
}

func (m *mockProvider) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.embedCalls++
	if m.failTexts[text] {
		return domain.EmbeddingResult{}, errors.New("per-item failure")
	}
	if m.embedErr != nil {
		return domain.EmbeddingResult{}, m.embedErr
	}
	return m.embedResult, nil
}

func (m *mockProvider) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if len(m.batchResult.Embeddings) != 0 {
		return m.batchResult, nil
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = m.embedResult.Embedding
	}
	return out, nil
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// --- Embed tests ---

func TestEmbed_EmptyInputReturnsZeroVector(t *testing.T) {
	inner := &mockProvider{}
	fs := NewFailSoft(inner, 4, zap.NewNop())

	for _, text := range []string{"", "   ", "\t\n"} {
		result, err := fs.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Embedding) != 4 {
			t.Fatalf("dimension = %d, want 4", len(result.Embedding))
		}
		if !isZero(result.Embedding) {
			t.Errorf("expected zero vector for %q, got %v", text, result.Embedding)
		}
	}
	if inner.embedCalls != 0 {
		t.Errorf("provider called %d times for blank input, want 0", inner.embedCalls)
	}
}

func TestEmbed_ProviderErrorReturnsZeroVector(t *testing.T) {
	inner := &mockProvider{embedErr: errors.New("provider down")}
	fs := NewFailSoft(inner, 3, zap.NewNop())

	result, err := fs.Embed(context.Background(), "some query")
	if err != nil {
		t.Fatalf("fail-soft must not surface errors, got %v", err)
	}
	if len(result.Embedding) != 3 || !isZero(result.Embedding) {
		t.Errorf("expected zero vector of dim 3, got %v", result.Embedding)
	}
}

func TestEmbed_PassThrough(t *testing.T) {
	want := []float32{0.5, 0.6}
	inner := &mockProvider{embedResult: domain.EmbeddingResult{Embedding: want, TotalTokens: 7}}
	fs := NewFailSoft(inner, 2, zap.NewNop())

	result, err := fs.Embed(context.Background(), "robots in space")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embedding[0] != 0.5 || result.TotalTokens != 7 {
		t.Errorf("unexpected result: %+v", result)
	}
}

// --- BatchEmbed tests ---

func TestBatchEmbed_Alignment(t *testing.T) {
	inner := &mockProvider{embedResult: domain.EmbeddingResult{Embedding: []float32{1, 1}}}
	fs := NewFailSoft(inner, 2, zap.NewNop())

	result, err := fs.BatchEmbed(context.Background(), []string{"a", "", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embeddings) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(result.Embeddings))
	}
	if isZero(result.Embeddings[0]) || isZero(result.Embeddings[2]) {
		t.Error("non-blank items must get real vectors")
	}
	if !isZero(result.Embeddings[1]) {
		t.Error("blank item must get a zero vector")
	}
}

func TestBatchEmbed_PerItemFallback(t *testing.T) {
	inner := &mockProvider{
		batchErr:    errors.New("batch endpoint down"),
		embedResult: domain.EmbeddingResult{Embedding: []float32{2, 2}},
		failTexts:   map[string]bool{"bad": true},
	}
	fs := NewFailSoft(inner, 2, zap.NewNop())

	result, err := fs.BatchEmbed(context.Background(), []string{"good", "bad", "fine"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.embedCalls != 3 {
		t.Errorf("expected 3 per-item retries, got %d", inner.embedCalls)
	}
	if isZero(result.Embeddings[0]) || isZero(result.Embeddings[2]) {
		t.Error("recoverable items must get real vectors")
	}
	if !isZero(result.Embeddings[1]) {
		t.Error("unrecoverable item must get a zero vector")
	}
}

func TestBatchEmbed_AllBlank(t *testing.T) {
	inner := &mockProvider{}
	fs := NewFailSoft(inner, 2, zap.NewNop())

	result, err := fs.BatchEmbed(context.Background(), []string{"", " "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 0 {
		t.Errorf("provider batch called for all-blank input")
	}
	for i, vec := range result.Embeddings {
		if len(vec) != 2 || !isZero(vec) {
			t.Errorf("item %d: expected zero vector, got %v", i, vec)
		}
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	fs := NewFailSoft(&mockProvider{}, 2, zap.NewNop())

	result, err := fs.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embeddings) != 0 {
		t.Errorf("expected no vectors, got %v", result.Embeddings)
	}
}
