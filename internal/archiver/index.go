package archiver

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luokai/weiboarchive/pkg/database"
	"github.com/luokai/weiboarchive/pkg/filesystem"
)

const indexSchema = `
	CREATE TABLE IF NOT EXISTS posts (
		post_id     TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		filename    TEXT NOT NULL,
		media_count INTEGER NOT NULL DEFAULT 0,
		archived_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_posts_filename ON posts(filename);
`

// Index records every archived post so later runs can report what has
// been seen before.
type Index struct {
	db *database.Database
}

// OpenIndex opens (or creates) the archive index database
func OpenIndex(path string) (*Index, error) {
	if err := filesystem.EnsureDirectoryExists(path); err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(database.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive index: %w", err)
	}

	if err := db.ExecuteSchema(indexSchema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize archive index: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize archive index: %w", err)
	}

	slog.Debug("Archive index ready", "path", db.Path())
	return &Index{db: db}, nil
}

// Record upserts one archived post
func (ix *Index) Record(postID, title, filename string, mediaCount int) error {
	_, err := ix.db.DB().Exec(`
		INSERT OR REPLACE INTO posts (post_id, title, filename, media_count)
		VALUES (?, ?, ?, ?)
	`, postID, title, filename, mediaCount)
	if err != nil {
		return fmt.Errorf("failed to record post %s: %w", postID, err)
	}
	return nil
}

// Has reports whether a post was archived before
func (ix *Index) Has(postID string) (bool, error) {
	var one int
	err := ix.db.DB().QueryRow(`SELECT 1 FROM posts WHERE post_id = ?`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query post %s: %w", postID, err)
	}
	return true, nil
}

// Count returns the number of archived posts
func (ix *Index) Count() (int, error) {
	var count int
	if err := ix.db.DB().QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count archived posts: %w", err)
	}
	return count, nil
}

// Close closes the index database
func (ix *Index) Close() error {
	return ix.db.Close()
}
