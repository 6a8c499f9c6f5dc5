package models

// DocumentKind tells report-style sources apart from the equipment catalog.
type DocumentKind string

const (
	KindReport  DocumentKind = "report"
	KindCatalog DocumentKind = "catalog"
)

// Document is one extracted source, read once per request.
type Document struct {
	ID   string
	Kind DocumentKind
	Text string
}

// Chunk represents a token-bounded fragment of a document
type Chunk struct {
	DocumentID string
	Kind       DocumentKind
	Ordinal    int
	StartToken int
	EndToken   int
	Content    string
}

// Privileged reports whether the chunk came from the equipment catalog.
func (c Chunk) Privileged() bool {
	return c.Kind == KindCatalog
}

// ScoredChunk is a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
