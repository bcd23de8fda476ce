// Package transform converts raw feed cards into rendered markdown
// documents, downloading each embedded media asset along the way.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/luokai/weiboarchive/internal/document"
	"github.com/luokai/weiboarchive/internal/feed"
	"github.com/luokai/weiboarchive/pkg/filesystem"
)

// MediaDownloader retrieves one asset and returns its local filename
type MediaDownloader interface {
	Download(ctx context.Context, url, postID string, index int) (string, error)
}

// Recorder tracks archived posts across runs
type Recorder interface {
	Has(postID string) (bool, error)
	Record(postID, title, filename string, mediaCount int) error
}

// PageSource enumerates and loads persisted raw pages
type PageSource interface {
	List() ([]string, error)
	Load(path string) ([]byte, error)
}

// Transformer turns cards into documents in the docs directory
type Transformer struct {
	downloader MediaDownloader
	recorder   Recorder
	docsDir    string
}

// New creates a transformer. recorder may be nil when no archive index
// is in use.
func New(downloader MediaDownloader, recorder Recorder, docsDir string) *Transformer {
	return &Transformer{
		downloader: downloader,
		recorder:   recorder,
		docsDir:    docsDir,
	}
}

// TransformCard converts one card into a document. A nil document with
// a nil error means the card was skipped: unrecognized kind or
// undecodable payload. Media assets are downloaded in their original
// order and referenced in that same order.
func (t *Transformer) TransformCard(ctx context.Context, card *feed.Card) (*document.Document, error) {
	content := feed.ExtractContent(card)
	if content.Kind == feed.KindUnknown {
		slog.Debug("Skipping post of unrecognized kind", "post", card.PostID(), "kind", card.Kind)
		return nil, nil
	}

	doc := document.New(card.Time(), document.CleanHTML(content.Body))

	for i, mediaURL := range content.MediaURLs {
		name, err := t.downloader.Download(ctx, mediaURL, card.PostID(), i)
		if err != nil {
			return nil, fmt.Errorf("failed to download media %d of post %s: %w", i, card.PostID(), err)
		}
		doc.Media = append(doc.Media, name)
	}

	return doc, nil
}

// WriteDocument renders the document into the docs directory. A
// same-minute post overwrites the earlier document of that name; the
// overwrite is reported rather than silently applied.
func (t *Transformer) WriteDocument(doc *document.Document) (string, error) {
	rendered, err := doc.Render()
	if err != nil {
		return "", err
	}

	path := filepath.Join(t.docsDir, doc.Filename())
	if filesystem.FileExists(path) {
		slog.Warn("Overwriting document from an earlier post in the same minute", "path", path)
	}

	if err := filesystem.EnsureDirectoryExists(path); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("failed to write document %s: %w", path, err)
	}
	return path, nil
}

// TransformAll processes every persisted page in order and returns the
// number of documents written. A failure on one post is logged and the
// batch continues; only context cancellation stops the walk.
func (t *Transformer) TransformAll(ctx context.Context, source PageSource) (int, error) {
	paths, err := source.List()
	if err != nil {
		return 0, err
	}

	written := 0
	for _, pagePath := range paths {
		data, err := source.Load(pagePath)
		if err != nil {
			slog.Error("Failed to load page, skipping", "path", pagePath, "error", err)
			continue
		}

		page, err := feed.ParsePage(data)
		if err != nil {
			slog.Error("Failed to parse page, skipping", "path", pagePath, "error", err)
			continue
		}

		cards := page.Cards()
		for i := range cards {
			card := &cards[i]

			if t.recorder != nil {
				seen, err := t.recorder.Has(card.PostID())
				switch {
				case err != nil:
					slog.Warn("Archive index lookup failed", "post", card.PostID(), "error", err)
				case seen:
					slog.Debug("Post already archived in a previous run", "post", card.PostID())
				}
			}

			doc, err := t.TransformCard(ctx, card)
			if err != nil {
				if ctx.Err() != nil {
					return written, ctx.Err()
				}
				slog.Error("Failed to transform post, skipping", "post", card.PostID(), "error", err)
				continue
			}
			if doc == nil {
				continue
			}

			path, err := t.WriteDocument(doc)
			if err != nil {
				slog.Error("Failed to write document, skipping post", "post", card.PostID(), "error", err)
				continue
			}
			written++
			slog.Info("Wrote document", "post", card.PostID(), "path", path, "media", len(doc.Media))

			if t.recorder != nil {
				if err := t.recorder.Record(card.PostID(), doc.Title, doc.Filename(), len(doc.Media)); err != nil {
					slog.Warn("Failed to record post in archive index", "post", card.PostID(), "error", err)
				}
			}
		}
	}
	return written, nil
}
