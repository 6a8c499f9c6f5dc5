package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalog_Lookup(t *testing.T) {
	c := &Catalog{Entries: []CatalogEntry{
		{Category: "Ferramentas", Code: "FER-001", Description: "Chave de torque"},
		{Category: "EPI", Code: "EPI-010", Description: "Luva de protecao"},
	}}

	entry, ok := c.Lookup("EPI-010")
	assert.True(t, ok)
	assert.Equal(t, "Luva de protecao", entry.Description)

	_, ok = c.Lookup("epi-010")
	assert.False(t, ok)
	assert.True(t, c.Has("FER-001"))

	var missing *Catalog
	assert.False(t, missing.Has("FER-001"))
}
