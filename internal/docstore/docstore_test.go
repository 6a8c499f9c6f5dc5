package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workorder-rag/internal/models"
)

func TestDir_Fetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "nr-12.txt"), []byte("texto"), 0o644))
	store := NewDir(root)
	ctx := context.Background()

	data, err := store.Fetch(ctx, "nr-12.txt")
	require.NoError(t, err)
	assert.Equal(t, "texto", string(data))

	_, err = store.Fetch(ctx, "missing.pdf")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Fetch(ctx, "../outside.txt")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}

func TestDir_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDir(t.TempDir()).Fetch(ctx, "any.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory_Fetch(t *testing.T) {
	store := NewMemory(map[string][]byte{"a.txt": []byte("a")})
	store.Put("b.txt", []byte("b"))

	data, err := store.Fetch(context.Background(), "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	_, err = store.Fetch(context.Background(), "c.txt")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
