package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/sync/errgroup"

	"workorder-rag/internal/config"
	"workorder-rag/internal/models"
)

const defaultConcurrency = 4

// Embedder batches texts to an embedding client. It satisfies the
// langchaingo embeddings.Embedder interface.
type Embedder struct {
	client      embeddings.EmbedderClient
	batchSize   int
	concurrency int
}

var _ embeddings.Embedder = (*Embedder)(nil)

// NewClient builds the langchaingo client for the configured provider.
func NewClient(llmConfig *config.LLMConfig) (embeddings.EmbedderClient, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Loaded embedder config")

	switch llmConfig.Provider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		return llm, nil
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
			openai.WithEmbeddingModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", llmConfig.Provider)
	}
}

// NewEmbedder wraps client. batchSize is clamped to the service ceiling.
func NewEmbedder(client embeddings.EmbedderClient, batchSize int) *Embedder {
	if batchSize < 1 || batchSize > config.MaxEmbedBatchSize {
		batchSize = config.MaxEmbedBatchSize
	}
	return &Embedder{client: client, batchSize: batchSize, concurrency: defaultConcurrency}
}

// EmbedDocuments returns one vector per text, vectors[i] for texts[i].
// Batches are sent concurrently; no call is retried.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			batch, err := e.client.CreateEmbedding(gctx, texts[start:end])
			if err != nil {
				return &models.EmbeddingServiceError{Err: err}
			}
			if len(batch) != end-start {
				return &models.EmbeddingServiceError{
					Err: fmt.Errorf("expected %d vectors for batch at %d, got %d", end-start, start, len(batch)),
				}
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkDimensions(vectors); err != nil {
		return nil, &models.EmbeddingServiceError{Err: err}
	}
	log.Debug().Int("texts", len(texts)).Int("dimension", len(vectors[0])).Msg("Embedded documents")
	return vectors, nil
}

// EmbedQuery embeds a single text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func checkDimensions(vectors [][]float32) error {
	dim := len(vectors[0])
	if dim == 0 {
		return errors.New("empty embedding returned")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return nil
}
