package flashcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a MemoryStore persisted to a single JSON file after every
// mutation. A failed write rolls the in-memory state back.
type FileStore struct {
	path string

	mu  sync.Mutex
	mem *MemoryStore
}

func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, mem: NewMemoryStore()}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fs, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cards []Flashcard
	if len(b) > 0 {
		if err := json.Unmarshal(b, &cards); err != nil {
			return nil, fmt.Errorf("json unmarshal: %w", err)
		}
	}
	if err := fs.mem.Replace(context.Background(), cards); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) List(ctx context.Context) ([]Flashcard, error) {
	return f.mem.List(ctx)
}

func (f *FileStore) Get(ctx context.Context, id string) (Flashcard, error) {
	return f.mem.Get(ctx, id)
}

func (f *FileStore) Create(ctx context.Context, c Flashcard) error {
	return f.mutate(ctx, func() error { return f.mem.Create(ctx, c) })
}

func (f *FileStore) Update(ctx context.Context, id string, fn func(*Flashcard) error) (Flashcard, error) {
	var out Flashcard
	err := f.mutate(ctx, func() error {
		var err error
		out, err = f.mem.Update(ctx, id, fn)
		return err
	})
	return out, err
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	return f.mutate(ctx, func() error { return f.mem.Delete(ctx, id) })
}

func (f *FileStore) Replace(ctx context.Context, cards []Flashcard) error {
	return f.mutate(ctx, func() error { return f.mem.Replace(ctx, cards) })
}

func (f *FileStore) mutate(ctx context.Context, apply func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, _ := f.mem.List(ctx)
	if err := apply(); err != nil {
		return err
	}
	next, _ := f.mem.List(ctx)
	if err := f.save(next); err != nil {
		_ = f.mem.Replace(ctx, prev)
		return err
	}
	return nil
}

func (f *FileStore) save(cards []Flashcard) error {
	b, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
