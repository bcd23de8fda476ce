package feed

import (
	"encoding/json"
	"testing"
	"time"
)

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name      string
		card      Card
		wantKind  ContentKind
		wantBody  string
		wantMedia []string
	}{
		{
			name: "text post",
			card: Card{
				Kind:    "text",
				ID:      100,
				Content: json.RawMessage(`{"text":"hello"}`),
			},
			wantKind: KindText,
			wantBody: "hello",
		},
		{
			name: "media post with ordered pictures",
			card: Card{
				Kind:    "media",
				ID:      200,
				Content: json.RawMessage(`{"description":"pic post","pictures":[{"url":"http://cdn/a.png"},{"url":"http://cdn/b.jpg"}]}`),
			},
			wantKind:  KindMedia,
			wantBody:  "pic post",
			wantMedia: []string{"http://cdn/a.png", "http://cdn/b.jpg"},
		},
		{
			name: "media post without pictures",
			card: Card{
				Kind:    "media",
				Content: json.RawMessage(`{"description":"no pics"}`),
			},
			wantKind: KindMedia,
			wantBody: "no pics",
		},
		{
			name: "string-encoded payload",
			card: Card{
				Kind:    "text",
				Content: json.RawMessage(`"{\"text\":\"wrapped\"}"`),
			},
			wantKind: KindText,
			wantBody: "wrapped",
		},
		{
			name: "unrecognized kind",
			card: Card{
				Kind:    "checkin",
				Content: json.RawMessage(`{"text":"ignored"}`),
			},
			wantKind: KindUnknown,
		},
		{
			name: "undecodable string payload",
			card: Card{
				Kind:    "text",
				Content: json.RawMessage(`"not json at all"`),
			},
			wantKind: KindUnknown,
		},
		{
			name: "empty payload",
			card: Card{
				Kind: "text",
			},
			wantKind: KindText,
			wantBody: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := ExtractContent(&tt.card)

			if content.Kind != tt.wantKind {
				t.Errorf("ExtractContent() kind = %v, want %v", content.Kind, tt.wantKind)
			}
			if content.Body != tt.wantBody {
				t.Errorf("ExtractContent() body = %q, want %q", content.Body, tt.wantBody)
			}
			if len(content.MediaURLs) != len(tt.wantMedia) {
				t.Fatalf("ExtractContent() media = %v, want %v", content.MediaURLs, tt.wantMedia)
			}
			for i := range tt.wantMedia {
				if content.MediaURLs[i] != tt.wantMedia[i] {
					t.Errorf("ExtractContent() media[%d] = %q, want %q", i, content.MediaURLs[i], tt.wantMedia[i])
				}
			}
		})
	}
}

func TestCardPostID(t *testing.T) {
	tests := []struct {
		name string
		card Card
		want string
	}{
		{"prefers string identifier", Card{ID: 42, IDStr: "42str"}, "42str"},
		{"falls back to numeric identifier", Card{ID: 42}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.card.PostID(); got != tt.want {
				t.Errorf("PostID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCardTime(t *testing.T) {
	card := Card{CreatedAt: 1680000000}
	want := time.Unix(1680000000, 0)
	if !card.Time().Equal(want) {
		t.Errorf("Time() = %v, want %v", card.Time(), want)
	}
}

func TestParsePageCardsField(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		hasCards bool
		count    int
	}{
		{
			name:     "cards present",
			body:     `{"code":0,"data":{"cards":[{"kind":"text","id":1}],"next_offset":500}}`,
			hasCards: true,
			count:    1,
		},
		{
			name:     "cards empty",
			body:     `{"code":0,"data":{"cards":[],"next_offset":0}}`,
			hasCards: true,
			count:    0,
		},
		{
			name:     "cards absent",
			body:     `{"code":100,"data":{"next_offset":0}}`,
			hasCards: false,
			count:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParsePage([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParsePage() error = %v", err)
			}
			if page.HasCards() != tt.hasCards {
				t.Errorf("HasCards() = %v, want %v", page.HasCards(), tt.hasCards)
			}
			if len(page.Cards()) != tt.count {
				t.Errorf("len(Cards()) = %d, want %d", len(page.Cards()), tt.count)
			}
		})
	}
}
