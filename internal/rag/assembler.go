package rag

import (
	"fmt"
	"strings"

	"workorder-rag/internal/models"
)

// TokenCounter measures text for the fragment budget.
type TokenCounter interface {
	Count(text string) int
}

// AssembleOptions bounds the retrieved fragments. A zero MaxFragmentTokens or
// nil Counter disables the budget.
type AssembleOptions struct {
	MaxFragmentTokens int
	Counter           TokenCounter
}

// Assemble lays out the ranked fragments followed by the full catalog. The
// catalog block is always present. Under a budget, privileged chunks are
// reserved first and the remaining fragments are dropped from the tail.
// kept holds the indexes of the emitted chunks, in rank order.
func Assemble(chunks []models.Chunk, catalogText string, opts AssembleOptions) (text string, kept []int) {
	keep := make([]bool, len(chunks))
	if opts.Counter != nil && opts.MaxFragmentTokens > 0 {
		used := 0
		for i, c := range chunks {
			if c.Privileged() {
				keep[i] = true
				used += opts.Counter.Count(c.Content)
			}
		}
		for i, c := range chunks {
			if c.Privileged() {
				continue
			}
			n := opts.Counter.Count(c.Content)
			if used+n > opts.MaxFragmentTokens {
				break
			}
			keep[i] = true
			used += n
		}
	} else {
		for i := range keep {
			keep[i] = true
		}
	}

	var b strings.Builder
	for i, c := range chunks {
		if !keep[i] {
			continue
		}
		kept = append(kept, i)
		fmt.Fprintf(&b, models.FragmentLabel, len(kept), c.DocumentID, c.Ordinal)
		b.WriteString("\n")
		b.WriteString(c.Content)
		b.WriteString(models.ContextSeparator)
	}
	b.WriteString(models.CatalogLabel)
	b.WriteString("\n")
	b.WriteString(catalogText)
	return b.String(), kept
}
