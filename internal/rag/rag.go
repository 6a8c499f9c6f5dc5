package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/sync/errgroup"

	"workorder-rag/internal/chunker"
	"workorder-rag/internal/config"
	"workorder-rag/internal/docstore"
	"workorder-rag/internal/models"
	"workorder-rag/internal/parser"
	"workorder-rag/internal/retriever"
)

// Generator turns an assembled context into a validated work order.
type Generator interface {
	Generate(ctx context.Context, promptContext, problem string, catalog *models.Catalog) (*models.WorkOrder, error)
}

type RAG struct {
	store     docstore.Store
	splitter  *chunker.Splitter
	embedder  embeddings.Embedder
	generator Generator
	cfg       *config.Config
}

// Response is the outcome of one pipeline run.
type Response struct {
	Query     string
	Sources   []models.ScoredChunk // fragments placed in the prompt
	WorkOrder *models.WorkOrder
}

func NewRAG(store docstore.Store, splitter *chunker.Splitter, embedder embeddings.Embedder, generator Generator, cfg *config.Config) *RAG {
	return &RAG{store: store, splitter: splitter, embedder: embedder, generator: generator, cfg: cfg}
}

// Query runs extraction, chunking, embedding, retrieval, assembly and
// generation for one problem description. Any stage failure aborts the run.
func (r *RAG) Query(ctx context.Context, problem string) (*Response, error) {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return nil, errors.New("problem description is empty")
	}

	catalog, catalogDoc, err := parser.ParseCatalog(ctx, r.store, r.cfg.Corpus.Catalog)
	if err != nil {
		return nil, err
	}
	docs, err := r.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	docs = append(docs, catalogDoc)

	var chunks []models.Chunk
	for _, doc := range docs {
		docChunks, err := r.splitter.SplitDocument(doc, r.cfg.RAG.ChunkTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %s: %w", doc.ID, err)
		}
		chunks = append(chunks, docChunks...)
	}
	texts := make([]string, len(chunks))
	privileged := make([]bool, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
		privileged[i] = c.Privileged()
	}
	log.Debug().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Chunked corpus")

	corpusVectors, queryVector, err := r.embed(ctx, texts, problem)
	if err != nil {
		return nil, err
	}

	hits, err := retriever.Search(queryVector, corpusVectors, privileged, r.cfg.RAG.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search corpus: %w", err)
	}
	selected := make([]models.Chunk, len(hits))
	for i, h := range hits {
		selected[i] = chunks[h.Index]
	}
	promptContext, kept := Assemble(selected, catalogDoc.Text, AssembleOptions{
		MaxFragmentTokens: r.cfg.RAG.ContextTokens,
		Counter:           r.splitter,
	})

	sources := make([]models.ScoredChunk, 0, len(kept))
	for _, i := range kept {
		sources = append(sources, models.ScoredChunk{Chunk: selected[i], Score: hits[i].Score})
		log.Debug().Str("source", selected[i].DocumentID).Int("ordinal", selected[i].Ordinal).Float64("score", hits[i].Score).Msg("Context fragment")
	}
	if len(kept) < len(hits) {
		log.Debug().Int("retrieved", len(hits)).Int("kept", len(kept)).Msg("Context budget dropped fragments")
	}

	genCtx, cancel := r.callContext(ctx)
	defer cancel()
	order, err := r.generator.Generate(genCtx, promptContext, problem, catalog)
	if err != nil {
		return nil, err
	}

	return &Response{Query: problem, Sources: sources, WorkOrder: order}, nil
}

// loadDocuments extracts the configured report documents. A failing
// non-essential document is skipped.
func (r *RAG) loadDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	for _, ref := range r.cfg.Corpus.Documents {
		doc, err := parser.ParseDocument(ctx, r.store, ref.Path)
		if err != nil {
			if ref.Essential || ctx.Err() != nil {
				return nil, err
			}
			log.Warn().Err(err).Str("source", ref.Path).Msg("Skipping document")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// embed issues the corpus batch and the query embedding concurrently.
func (r *RAG) embed(ctx context.Context, texts []string, query string) ([][]float32, []float32, error) {
	var (
		corpusVectors [][]float32
		queryVector   []float32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		callCtx, cancel := r.callContext(gctx)
		defer cancel()
		vectors, err := r.embedder.EmbedDocuments(callCtx, texts)
		if err != nil {
			return err
		}
		corpusVectors = vectors
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := r.callContext(gctx)
		defer cancel()
		vector, err := r.embedder.EmbedQuery(callCtx, query)
		if err != nil {
			return err
		}
		queryVector = vector
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return corpusVectors, queryVector, nil
}

func (r *RAG) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.RAG.CallTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.RAG.CallTimeout)
	}
	return context.WithCancel(ctx)
}
