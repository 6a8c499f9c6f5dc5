package chunker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"workorder-rag/internal/models"
)

// ErrInvalidSize is returned for a token budget below one.
var ErrInvalidSize = errors.New("max tokens must be at least 1")

// Tokenizer encodes text to token ids and back. Decode(Encode(s)) must
// reproduce s.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

var loaderOnce sync.Once

// tiktokenTokenizer treats special token text as ordinary text so encoding
// never fails on document content.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken returns a tokenizer for the named encoding, e.g. cl100k_base.
// BPE ranks are loaded from the embedded offline copy.
func NewTiktoken(encoding string) (Tokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Splitter cuts text into consecutive token windows.
type Splitter struct {
	tok Tokenizer
}

func NewSplitter(tok Tokenizer) *Splitter {
	return &Splitter{tok: tok}
}

// Count returns the number of tokens in text.
func (s *Splitter) Count(text string) int {
	return len(s.tok.Encode(text))
}

// Split encodes text and decodes windows of at most maxTokens tokens. The
// last window may be shorter. Joining the result reproduces the decoded
// token stream of text.
func (s *Splitter) Split(text string, maxTokens int) ([]string, error) {
	spans, tokens, err := s.spans(text, maxTokens)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, len(spans))
	for i, sp := range spans {
		chunks[i] = s.tok.Decode(tokens[sp[0]:sp[1]])
	}
	return chunks, nil
}

// SplitDocument splits a document and tags each chunk with its source,
// ordinal and token span.
func (s *Splitter) SplitDocument(doc models.Document, maxTokens int) ([]models.Chunk, error) {
	spans, tokens, err := s.spans(doc.Text, maxTokens)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = models.Chunk{
			DocumentID: doc.ID,
			Kind:       doc.Kind,
			Ordinal:    i,
			StartToken: sp[0],
			EndToken:   sp[1],
			Content:    s.tok.Decode(tokens[sp[0]:sp[1]]),
		}
	}
	return chunks, nil
}

func (s *Splitter) spans(text string, maxTokens int) ([][2]int, []int, error) {
	if maxTokens < 1 {
		return nil, nil, ErrInvalidSize
	}
	tokens := s.tok.Encode(text)
	spans := make([][2]int, 0, (len(tokens)+maxTokens-1)/maxTokens)
	for start := 0; start < len(tokens); start += maxTokens {
		end := min(start+maxTokens, len(tokens))
		spans = append(spans, [2]int{start, end})
	}
	return spans, tokens, nil
}
