package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by stores when a source or record does not exist.
var ErrNotFound = errors.New("not found")

// ExtractionError reports an unreadable, unsupported or empty source.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingServiceError wraps transport failures and malformed responses from
// the embedding service.
type EmbeddingServiceError struct {
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service: %v", e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationServiceError wraps failures of the generative model call.
type GenerationServiceError struct {
	Err error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service: %v", e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }

// ResponseSchemaError is returned when the model output does not conform to
// the work order schema. Raw holds the undecoded model output.
type ResponseSchemaError struct {
	Violations []string
	Raw        string
}

func (e *ResponseSchemaError) Error() string {
	return "response does not match work order schema: " + strings.Join(e.Violations, "; ")
}
