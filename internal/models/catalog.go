package models

import (
	"fmt"
	"strings"
)

// CatalogEntry is one equipment record of the catalog.
type CatalogEntry struct {
	Category    string `json:"categoria"`
	Code        string `json:"codigo"`
	Description string `json:"descricao"`
}

// Catalog is the ordered equipment list available to work orders.
type Catalog struct {
	Source  string
	Entries []CatalogEntry
}

// Lookup returns the entry whose code matches code verbatim.
func (c *Catalog) Lookup(code string) (CatalogEntry, bool) {
	if c == nil {
		return CatalogEntry{}, false
	}
	for _, e := range c.Entries {
		if e.Code == code {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// Has reports whether code exists verbatim in the catalog.
func (c *Catalog) Has(code string) bool {
	_, ok := c.Lookup(code)
	return ok
}

// Text renders the catalog as a marker-wrapped text stream, entries grouped
// under their category header.
func (c *Catalog) Text() string {
	var b strings.Builder
	b.WriteString(CatalogBegin)
	b.WriteString("\n")
	current := ""
	for i, e := range c.Entries {
		if i == 0 || e.Category != current {
			current = e.Category
			fmt.Fprintf(&b, "## Categoria: %s\n", current)
		}
		fmt.Fprintf(&b, "- Codigo: %s | Descricao: %s\n", e.Code, e.Description)
	}
	b.WriteString(CatalogEnd)
	b.WriteString("\n")
	return b.String()
}
