package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"workorder-rag/internal/helper"
	"workorder-rag/internal/models"
)

// File stores work orders as one JSON array. Every Save rewrites the file
// through a temporary sibling and a rename.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Save(ctx context.Context, order *models.WorkOrder) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored, err := stamp(order)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	orders, err := f.load()
	if err != nil {
		return "", err
	}
	orders = append(orders, *stored)
	if err := f.write(orders); err != nil {
		return "", err
	}
	order.ID, order.CreatedAt = stored.ID, stored.CreatedAt
	log.Info().Str("id", order.ID).Str("path", f.path).Msg("Stored work order")
	return order.ID, nil
}

func (f *File) Get(ctx context.Context, id string) (*models.WorkOrder, error) {
	orders, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *File) List(ctx context.Context) ([]models.WorkOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *File) Close() error {
	return nil
}

func (f *File) load() ([]models.WorkOrder, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.WorkOrder{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	orders := []models.WorkOrder{}
	if len(data) == 0 {
		return orders, nil
	}
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	return orders, nil
}

func (f *File) write(orders []models.WorkOrder) error {
	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode work orders: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := helper.CreateFolder(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".work-orders-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
