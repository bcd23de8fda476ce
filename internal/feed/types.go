package feed

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"
)

// Page represents one feed API response
type Page struct {
	Code int `json:"code"`
	Data struct {
		// Pointer distinguishes an absent cards field (expired session)
		// from an empty page
		Cards      *[]Card `json:"cards"`
		NextOffset int64   `json:"next_offset"`
	} `json:"data"`
}

// Cards returns the page's cards, or nil when the field was absent
func (p *Page) Cards() []Card {
	if p.Data.Cards == nil {
		return nil
	}
	return *p.Data.Cards
}

// HasCards reports whether the response carried a cards field at all
func (p *Page) HasCards() bool {
	return p.Data.Cards != nil
}

// ParsePage decodes a stored raw page
func ParsePage(data []byte) (*Page, error) {
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Card represents one timeline entry as delivered by the source
type Card struct {
	Kind      string          `json:"kind"`
	ID        int64           `json:"id"`
	IDStr     string          `json:"idstr"`
	CreatedAt int64           `json:"created_at"`
	Content   json.RawMessage `json:"content"`
}

// PostID returns the card's identifier, preferring the string form
func (c *Card) PostID() string {
	if c.IDStr != "" {
		return c.IDStr
	}
	return strconv.FormatInt(c.ID, 10)
}

// Time returns the card's creation time
func (c *Card) Time() time.Time {
	return time.Unix(c.CreatedAt, 0)
}

// ContentKind tags the recognized card payload variants
type ContentKind int

// Recognized payload variants
const (
	KindUnknown ContentKind = iota
	KindText
	KindMedia
)

// Card kind discriminant values as delivered by the feed
const (
	cardKindText  = "text"
	cardKindMedia = "media"
)

// Content is the extracted payload of a card: a tagged variant with the
// body text and the ordered media URLs
type Content struct {
	Kind      ContentKind
	Body      string
	MediaURLs []string
}

// payload mirrors the nested card payload shape for both variants
type payload struct {
	Text        string `json:"text"`
	Description string `json:"description"`
	Pictures    []struct {
		URL string `json:"url"`
	} `json:"pictures"`
}

// ExtractContent dispatches on the card's kind discriminant and returns
// the tagged content variant. Unrecognized kinds and undecodable
// payloads yield KindUnknown; a malformed card never aborts the batch.
func ExtractContent(card *Card) Content {
	switch card.Kind {
	case cardKindText, cardKindMedia:
	default:
		return Content{Kind: KindUnknown}
	}

	p, err := decodePayload(card.Content)
	if err != nil {
		slog.Warn("Failed to decode card payload, skipping post",
			"post", card.PostID(), "kind", card.Kind, "error", err)
		return Content{Kind: KindUnknown}
	}

	if card.Kind == cardKindText {
		return Content{Kind: KindText, Body: p.Text}
	}

	content := Content{Kind: KindMedia, Body: p.Description}
	for _, pic := range p.Pictures {
		content.MediaURLs = append(content.MediaURLs, pic.URL)
	}
	return content
}

// decodePayload handles both inline payload objects and payloads the
// source delivers as a JSON-encoded string
func decodePayload(raw json.RawMessage) (*payload, error) {
	if len(raw) == 0 {
		return &payload{}, nil
	}

	data := []byte(raw)
	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return nil, err
		}
		data = []byte(encoded)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
