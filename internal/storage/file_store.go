package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// publishedFile is the on-disk layout: {"hashes": ["...", ...]}
type publishedFile struct {
	Hashes []string `json:"hashes"`
}

// FileStore keeps fingerprints in memory and rewrites a JSON file on every Add.
type FileStore struct {
	filePath string
	hashes   map[string]struct{}
	mu       sync.RWMutex
	log      *slog.Logger
}

// NewFileStore opens the store at filePath. A missing file starts an empty
// set; an unreadable or corrupt one is logged and also starts empty.
func NewFileStore(filePath string, log *slog.Logger) *FileStore {
	fs := &FileStore{
		filePath: filePath,
		hashes:   make(map[string]struct{}),
		log:      log,
	}
	if err := fs.load(); err != nil {
		log.Error("published set unreadable, starting empty", "path", filePath, "error", err)
		fs.hashes = make(map[string]struct{})
	}
	return fs
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var pf publishedFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("failed to unmarshal store: %w", err)
	}
	for _, h := range pf.Hashes {
		fs.hashes[h] = struct{}{}
	}
	fs.log.Info("published set loaded", "path", fs.filePath, "count", len(fs.hashes))
	return nil
}

// Contains reports whether fingerprint was published before.
func (fs *FileStore) Contains(_ context.Context, fingerprint string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, ok := fs.hashes[fingerprint]
	return ok, nil
}

// Add records fingerprint and flushes the whole set to disk before returning.
// On a write failure the in-memory set keeps the entry so the current
// process still treats the item as published.
func (fs *FileStore) Add(_ context.Context, fingerprint string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.hashes[fingerprint] = struct{}{}
	return fs.save()
}

// Count returns the number of stored fingerprints.
func (fs *FileStore) Count(_ context.Context) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.hashes), nil
}

// Close is a no-op; every Add is already on disk.
func (fs *FileStore) Close() error { return nil }

// save writes to a temp file in the same directory and renames it over the
// target, so a crash mid-write never leaves a truncated file behind.
func (fs *FileStore) save() error {
	pf := publishedFile{Hashes: make([]string, 0, len(fs.hashes))}
	for h := range fs.hashes {
		pf.Hashes = append(pf.Hashes, h)
	}
	sort.Strings(pf.Hashes)

	data, err := json.Marshal(pf)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	dir := filepath.Dir(fs.filePath)
	tmp, err := os.CreateTemp(dir, filepath.Base(fs.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close store file: %w", err)
	}
	if err := os.Rename(tmpName, fs.filePath); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
