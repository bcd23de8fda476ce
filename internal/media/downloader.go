// Package media retrieves binary assets referenced by posts and stores
// them under stable, deterministic names.
//
// The default retry policy never gives up: a failed download is retried
// at a fixed cooldown without an attempt ceiling, so a permanently dead
// URL blocks the whole run indefinitely. Set MaxAttempts in the
// downloader options to bound it.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/luokai/weiboarchive/pkg/api"
	"github.com/luokai/weiboarchive/pkg/filesystem"
)

// defaultExt is used when the asset URL carries no file extension
const defaultExt = ".jpg"

// Options configures a Downloader
type Options struct {
	Cooldown    time.Duration
	MaxAttempts int // 0 retries forever
}

// Downloader fetches media assets one at a time
type Downloader struct {
	client *api.Client
	dir    string
	policy *api.RetryPolicy
}

// NewDownloader creates a downloader writing into dir
func NewDownloader(dir string, opts Options) *Downloader {
	policy := api.PatientRetryPolicy(opts.Cooldown)
	if opts.MaxAttempts > 0 {
		policy.MaxAttempts = opts.MaxAttempts
	}

	// No per-request timeout: large assets stream for as long as they need
	client := api.NewClient(&api.ClientConfig{
		BaseClient:  &http.Client{},
		RetryPolicy: policy,
	})

	return &Downloader{
		client: client,
		dir:    dir,
		policy: policy,
	}
}

// Filename derives the deterministic local name for an asset:
// {postID}_{index}{ext}, with the extension taken from the URL path and
// defaulting when the URL supplies none.
func Filename(rawURL, postID string, index int) string {
	ext := defaultExt
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	return fmt.Sprintf("%s_%d%s", postID, index, ext)
}

// Download fetches one asset and writes it to disk, returning the local
// filename. Under the default unbounded policy the only error cases are
// context cancellation and a malformed request; HTTP failures are
// retried until they succeed.
func (d *Downloader) Download(ctx context.Context, rawURL, postID string, index int) (string, error) {
	filename := Filename(rawURL, postID, index)
	dest := filepath.Join(d.dir, filename)

	operation := func() error {
		resp, err := d.client.Get(ctx, rawURL, nil)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return &api.HTTPError{
				StatusCode: resp.StatusCode,
				Message:    resp.Status,
			}
		}

		return writeStream(dest, resp.Body)
	}

	if err := api.ExecuteWithRetry(ctx, operation, d.policy, "download "+rawURL); err != nil {
		return "", err
	}
	return filename, nil
}

// writeStream copies the response body to dest chunk by chunk
func writeStream(dest string, body io.Reader) error {
	if err := filesystem.EnsureDirectoryExists(dest); err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create media file %s: %w", dest, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write media file %s: %w", dest, err)
	}
	return f.Close()
}
