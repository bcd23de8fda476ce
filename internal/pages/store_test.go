package pages

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndList(t *testing.T) {
	store := NewStore(t.TempDir())

	for seq := 1; seq <= 11; seq++ {
		if _, err := store.Save(seq, []byte(`{"code":0}`)); err != nil {
			t.Fatalf("Save(%d) error = %v", seq, err)
		}
	}

	paths, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(paths) != 11 {
		t.Fatalf("List() = %d paths, want 11", len(paths))
	}

	// Numeric ordering: 2.json before 10.json
	if filepath.Base(paths[1]) != "2.json" {
		t.Errorf("paths[1] = %s, want 2.json", filepath.Base(paths[1]))
	}
	if filepath.Base(paths[9]) != "10.json" {
		t.Errorf("paths[9] = %s, want 10.json", filepath.Base(paths[9]))
	}
}

func TestSaveBucketsbyDate(t *testing.T) {
	store := NewStore(t.TempDir())

	path, err := store.Save(1, []byte(`{}`))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	bucket := filepath.Base(filepath.Dir(path))
	if bucket != store.date {
		t.Errorf("page saved under %q, want date bucket %q", bucket, store.date)
	}
	if filepath.Base(path) != "1.json" {
		t.Errorf("page file = %s, want 1.json", filepath.Base(path))
	}
}

func TestLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	want := []byte(`{"code":0,"data":{"cards":[],"next_offset":0}}`)
	path, err := store.Save(1, want)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Load() = %s, want %s", got, want)
	}
}

func TestListEmptyStore(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing"))

	paths, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("List() = %d paths, want 0", len(paths))
	}
}

func TestAcquireLock(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	release, err := store.AcquireLock()
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, lockFileName)); err != nil {
		t.Errorf("lock file missing: %v", err)
	}

	// Second acquisition fails while the lock is held
	if _, err := store.AcquireLock(); err == nil {
		t.Error("second AcquireLock() succeeded, want error")
	}

	release()

	// Released lock can be re-acquired
	release2, err := store.AcquireLock()
	if err != nil {
		t.Fatalf("AcquireLock() after release error = %v", err)
	}
	release2()
}
