// Package embedding implements the fail-soft embedding policy: degraded
// requests get zero vectors instead of errors, so embedding trouble lowers
// ranking quality rather than aborting requests.
package embedding

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/reelrag/reelrag/internal/domain"
	"github.com/reelrag/reelrag/internal/metrics"
)

// Provider is the inner contract: a real embedder with batch support.
type Provider interface {
	domain.Embedder
	domain.BatchEmbedder
}

// FailSoft decorates a provider with the zero-vector fallback. It never
// returns an error; degradations are logged and counted only.
type FailSoft struct {
	inner  Provider
	dim    int
	logger *zap.Logger
}

// NewFailSoft creates the fail-soft decorator. dim is the configured vector
// dimension used for fallback vectors.
func NewFailSoft(inner Provider, dim int, logger *zap.Logger) *FailSoft {
	return &FailSoft{inner: inner, dim: dim, logger: logger}
}

// Embed returns the provider's vector, or a zero vector of the configured
// dimension when the input is blank or the provider fails.
func (f *FailSoft) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		f.degrade("empty_input", nil)
		return domain.EmbeddingResult{Embedding: domain.ZeroVector(f.dim)}, nil
	}

	result, err := f.inner.Embed(ctx, text)
	if err != nil {
		f.degrade("provider_error", err)
		return domain.EmbeddingResult{Embedding: domain.ZeroVector(f.dim)}, nil
	}

	return result, nil
}

// BatchEmbed applies the fallback per item: blank inputs are zero-filled
// without a provider call, a whole-batch failure is retried item by item, and
// only items that still fail get zero vectors. Output is index-aligned with
// the input.
func (f *FailSoft) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	if len(texts) == 0 {
		return out, nil
	}

	// Blank inputs never reach the provider.
	pending := make([]string, 0, len(texts))
	pendingIdx := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			f.degrade("empty_input", nil)
			out.Embeddings[i] = domain.ZeroVector(f.dim)
			continue
		}
		pending = append(pending, text)
		pendingIdx = append(pendingIdx, i)
	}

	if len(pending) == 0 {
		return out, nil
	}

	batch, err := f.inner.BatchEmbed(ctx, pending)
	if err == nil {
		out.PromptTokens = batch.PromptTokens
		out.TotalTokens = batch.TotalTokens
		for j, i := range pendingIdx {
			out.Embeddings[i] = batch.Embeddings[j]
		}
		return out, nil
	}

	f.logger.Warn("Batch embedding failed, retrying per item", zap.Error(err))

	for j, i := range pendingIdx {
		res, err := f.inner.Embed(ctx, pending[j])
		if err != nil {
			f.degrade("provider_error", err)
			out.Embeddings[i] = domain.ZeroVector(f.dim)
			continue
		}
		out.Embeddings[i] = res.Embedding
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	return out, nil
}

func (f *FailSoft) degrade(reason string, err error) {
	metrics.EmbeddingFallbacksTotal.WithLabelValues(reason).Inc()
	if err != nil {
		f.logger.Warn("Embedding degraded to zero vector",
			zap.String("reason", reason), zap.Error(err))
		return
	}
	f.logger.Warn("Embedding degraded to zero vector", zap.String("reason", reason))
}
