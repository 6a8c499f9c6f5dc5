package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"workorder-rag/internal/models"
)

// Store fetches raw source bytes by reference.
type Store interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Dir serves files below a root directory.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", ref, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return data, nil
}

// resolve keeps references inside the root.
func (d *Dir) resolve(ref string) (string, error) {
	if d.root == "" {
		return filepath.Clean(ref), nil
	}
	path := filepath.Join(d.root, ref)
	rel, err := filepath.Rel(d.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("reference %q escapes the document root", ref)
	}
	return path, nil
}

// Memory is a map backed store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory(docs map[string][]byte) *Memory {
	m := &Memory{docs: make(map[string][]byte, len(docs))}
	for k, v := range docs {
		m.docs[k] = v
	}
	return m
}

func (m *Memory) Put(ref string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[ref] = data
}

func (m *Memory) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[ref]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, models.ErrNotFound)
	}
	return data, nil
}
