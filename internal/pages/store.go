// Package pages persists raw feed pages on disk, one JSON document per
// page, bucketed by the run's calendar date.
package pages

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const lockFileName = ".lock"

// Store writes and enumerates raw page files under a root directory.
// Pages of one run live in <root>/<YYYY-MM-DD>/<seq>.json.
type Store struct {
	root string
	date string
}

// NewStore creates a page store rooted at dir, bucketing this run's
// pages under today's date.
func NewStore(dir string) *Store {
	return &Store{
		root: dir,
		date: time.Now().Format("2006-01-02"),
	}
}

// Save persists one raw page under the run's date bucket
func (s *Store) Save(seq int, data []byte) (string, error) {
	dir := filepath.Join(s.root, s.date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create page directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, strconv.Itoa(seq)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write page file %s: %w", path, err)
	}
	return path, nil
}

// List returns all stored page files, ordered by date bucket and then
// by numeric sequence within each bucket.
func (s *Store) List() ([]string, error) {
	buckets, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read page store %s: %w", s.root, err)
	}

	var paths []string
	for _, bucket := range buckets {
		if !bucket.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, bucket.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read page bucket %s: %w", dir, err)
		}

		var files []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			files = append(files, entry.Name())
		}
		sort.Slice(files, func(i, j int) bool {
			return pageSeq(files[i]) < pageSeq(files[j])
		})
		for _, name := range files {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}

// Load reads one stored page file
func (s *Store) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page file %s: %w", path, err)
	}
	return data, nil
}

// AcquireLock takes an exclusive run lock in the store root, preventing
// two overlapping runs from interleaving writes. The returned release
// function removes the lock.
func (s *Store) AcquireLock() (func(), error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create page store %s: %w", s.root, err)
	}

	path := filepath.Join(s.root, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another run holds the lock file %s", path)
		}
		return nil, fmt.Errorf("failed to create lock file %s: %w", path, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()

	return func() { _ = os.Remove(path) }, nil
}

// pageSeq extracts the numeric sequence from a page file name; files
// that do not parse sort last
func pageSeq(name string) int {
	seq, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return seq
}
