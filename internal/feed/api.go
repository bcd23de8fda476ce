// Package feed fetches and decodes a user's timeline from the remote
// feed API, one cursor-delimited page at a time.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/luokai/weiboarchive/pkg/api"
)

// ErrSessionExpired is returned when a response lacks the cards
// collection entirely. The session credential must be renewed outside
// the archiver, so callers treat this as fatal.
var ErrSessionExpired = errors.New("feed session expired: response carried no cards field")

// PageStore persists raw feed pages in fetch order
type PageStore interface {
	Save(seq int, data []byte) (string, error)
}

// API handles feed endpoint interactions
type API struct {
	client  *api.Client
	baseURL string
}

// NewAPI creates a feed API client. The session cookie is attached to
// every request; pageDelay spaces consecutive page fetches.
func NewAPI(baseURL, sessionCookie string, pageDelay time.Duration) *API {
	limiter := api.RateLimiter(api.NewNoOpRateLimiter())
	if pageDelay > 0 {
		limiter = api.NewSimpleRateLimiter(pageDelay)
	}

	client := api.NewClient(&api.ClientConfig{
		RateLimiter: limiter,
		RetryPolicy: api.DefaultRetryPolicy(),
	})
	client.SetDefaultHeader("Cookie", sessionCookie)

	return &API{
		client:  client,
		baseURL: baseURL,
	}
}

// FetchPage fetches a single page at the given cursor. It returns the
// raw response bytes for persistence alongside the parsed page.
func (a *API) FetchPage(ctx context.Context, userID string, cursor int64) ([]byte, *Page, error) {
	endpoint := fmt.Sprintf("%s/feed?host_uid=%s&offset_dynamic_id=%d",
		a.baseURL, url.QueryEscape(userID), cursor)

	var raw json.RawMessage
	if err := a.client.GetAndDecode(ctx, endpoint, &raw, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to fetch feed page: %w", err)
	}

	page, err := ParsePage(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed page: %w", err)
	}

	if !page.HasCards() {
		return nil, nil, ErrSessionExpired
	}

	return raw, page, nil
}

// FetchAll walks the timeline from the beginning. The cursor starts at
// the zero sentinel and each subsequent request uses exactly the
// next_offset of the previous page; pages are persisted with sequence
// numbers 1, 2, 3, … and the walk stops when next_offset returns to
// zero. Returns the number of pages persisted.
func (a *API) FetchAll(ctx context.Context, userID string, store PageStore) (int, error) {
	cursor := int64(0)
	for seq := 1; ; seq++ {
		raw, page, err := a.FetchPage(ctx, userID, cursor)
		if err != nil {
			return seq - 1, err
		}

		path, err := store.Save(seq, raw)
		if err != nil {
			return seq - 1, fmt.Errorf("failed to persist page %d: %w", seq, err)
		}

		slog.Info("Saved feed page",
			"seq", seq,
			"path", path,
			"cards", len(page.Cards()),
			"next_offset", page.Data.NextOffset)

		if page.Data.NextOffset == 0 {
			return seq, nil
		}
		cursor = page.Data.NextOffset
	}
}
