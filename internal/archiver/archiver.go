// Package archiver wires the pipeline stages together: fetch the feed,
// transform stored pages into documents, publish into the site.
package archiver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/luokai/weiboarchive/internal/config"
	"github.com/luokai/weiboarchive/internal/feed"
	"github.com/luokai/weiboarchive/internal/media"
	"github.com/luokai/weiboarchive/internal/pages"
	"github.com/luokai/weiboarchive/internal/publish"
	"github.com/luokai/weiboarchive/internal/transform"
)

// Archiver runs the archive pipeline in strict sequence with no
// rollback between stages.
type Archiver struct {
	cfg         *config.Config
	api         *feed.API
	store       *pages.Store
	transformer *transform.Transformer
	publisher   *publish.Publisher
	index       *Index
}

// New constructs the pipeline from a validated configuration
func New(cfg *config.Config) (*Archiver, error) {
	index, err := OpenIndex(cfg.Storage.IndexDB)
	if err != nil {
		return nil, err
	}

	downloader := media.NewDownloader(cfg.Storage.MediaDir, media.Options{
		Cooldown:    cfg.MediaCooldown(),
		MaxAttempts: cfg.Media.MaxAttempts,
	})

	return &Archiver{
		cfg:         cfg,
		api:         feed.NewAPI(cfg.Feed.BaseURL, cfg.Feed.SessionCookie, cfg.PageDelay()),
		store:       pages.NewStore(cfg.Storage.PagesDir),
		transformer: transform.New(downloader, index, cfg.Storage.DocsDir),
		publisher:   publish.NewPublisher(cfg.Storage.DocsDir, cfg.Publish.Dir, cfg.Publish.BuilderCmd, cfg.Publish.BuilderArg),
		index:       index,
	}, nil
}

// Close releases the archive index
func (a *Archiver) Close() error {
	return a.index.Close()
}

// Fetch walks the remote timeline and persists every page
func (a *Archiver) Fetch(ctx context.Context) error {
	count, err := a.api.FetchAll(ctx, a.cfg.Feed.UserID, a.store)
	if err != nil {
		return fmt.Errorf("fetch stage failed after %d pages: %w", count, err)
	}
	slog.Info("Fetch stage complete", "pages", count)
	return nil
}

// Transform renders all persisted pages into documents
func (a *Archiver) Transform(ctx context.Context) error {
	count, err := a.transformer.TransformAll(ctx, a.store)
	if err != nil {
		return fmt.Errorf("transform stage failed after %d documents: %w", count, err)
	}
	slog.Info("Transform stage complete", "documents", count)
	return nil
}

// Publish merges documents into the publish target and rebuilds the site
func (a *Archiver) Publish(ctx context.Context) error {
	return a.publisher.Publish(ctx)
}

// Run executes fetch, transform and publish in order. A fetch failure
// is fatal to the run; a publish failure is reported without undoing
// the earlier stages.
func (a *Archiver) Run(ctx context.Context) error {
	release, err := a.store.AcquireLock()
	if err != nil {
		return err
	}
	defer release()

	if err := a.Fetch(ctx); err != nil {
		return err
	}

	if err := a.Transform(ctx); err != nil {
		return err
	}

	if err := a.Publish(ctx); err != nil {
		slog.Error("Publish stage failed", "error", err)
	}
	return nil
}
