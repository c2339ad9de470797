// Package cache persists small JSON documents between runs: the hero and
// villain name lists and the card-art result maps.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Document keys shared by the tools.
const (
	HeroNamesKey     = "cached_hero_names.json"
	VillainNamesKey  = "cached_villain_names.json"
	HeroImagesKey    = "hero_images.json"
	VillainImagesKey = "villain_images.json"
)

// ErrNotFound means the document has never been saved.
var ErrNotFound = errors.New("cache: document not found")

// Store reads and writes whole JSON documents by key.
type Store interface {
	Load(ctx context.Context, key string, v any) error
	Save(ctx context.Context, key string, v any) error
}

// FileStore keeps each document as a file under Dir.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(key string) string { return filepath.Join(s.Dir, filepath.Base(key)) }

func (s *FileStore) Load(_ context.Context, key string, v any) error {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Save overwrites the document; a temp file and rename keep a crashed run
// from leaving half a file behind.
func (s *FileStore) Save(_ context.Context, key string, v any) error {
	b, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.Dir, err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func encode(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
