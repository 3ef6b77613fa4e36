package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kobzarvs/qdraft/internal/encoding"
	"github.com/kobzarvs/qdraft/internal/logger"
)

const fileExt = ".json"

// FileStore keeps each document as a JSON file in BasePath.
type FileStore struct {
	BasePath string
}

func NewFileStore(basePath string) *FileStore {
	if basePath == "" {
		basePath = filepath.Join(".qdraft", "documents")
	}
	return &FileStore{BasePath: basePath}
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.BasePath, name+fileExt)
}

// Save writes to a temporary file and renames it over the old document.
func (f *FileStore) Save(ctx context.Context, name string, doc *encoding.RawContentState) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(f.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure document directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	tmp, err := os.CreateTemp(f.BasePath, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(name)); err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}
	logger.Named("store").Debugw("document saved", "name", name, "bytes", len(data))
	return nil
}

func (f *FileStore) Load(ctx context.Context, name string) (*encoding.RawContentState, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	var doc encoding.RawContentState
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %q: %w", name, err)
	}
	return &doc, nil
}

// Delete removes the document. Deleting a missing document is not an error.
func (f *FileStore) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(f.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// List returns document names in lexical order.
func (f *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	names := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		names = append(names, strings.TrimSuffix(name, fileExt))
	}
	slices.Sort(names)
	return names, nil
}

func (f *FileStore) Close() error { return nil }
