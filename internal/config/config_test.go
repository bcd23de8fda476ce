package config

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Media.Cooldown != 180 {
		t.Errorf("media.cooldown = %d, want 180", cfg.Media.Cooldown)
	}
	if cfg.Media.MaxAttempts != 0 {
		t.Errorf("media.max_attempts = %d, want 0 (unbounded)", cfg.Media.MaxAttempts)
	}
	if cfg.Publish.BuilderCmd != "hexo" {
		t.Errorf("publish.builder_cmd = %q, want %q", cfg.Publish.BuilderCmd, "hexo")
	}
	if cfg.MediaCooldown() != 180*time.Second {
		t.Errorf("MediaCooldown() = %v, want 180s", cfg.MediaCooldown())
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
feed:
  user_id: "555000"
  session_cookie: "SUB=abc"
  page_delay: 3
storage:
  pages_dir: /tmp/pages
media:
  cooldown: 5
  max_attempts: 10
publish:
  dir: /srv/blog/source/_posts
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Feed.UserID != "555000" {
		t.Errorf("feed.user_id = %q, want %q", cfg.Feed.UserID, "555000")
	}
	if cfg.Feed.SessionCookie != "SUB=abc" {
		t.Errorf("feed.session_cookie = %q, want %q", cfg.Feed.SessionCookie, "SUB=abc")
	}
	if cfg.PageDelay() != 3*time.Second {
		t.Errorf("PageDelay() = %v, want 3s", cfg.PageDelay())
	}
	if cfg.Storage.PagesDir != "/tmp/pages" {
		t.Errorf("storage.pages_dir = %q, want %q", cfg.Storage.PagesDir, "/tmp/pages")
	}
	if cfg.Media.MaxAttempts != 10 {
		t.Errorf("media.max_attempts = %d, want 10", cfg.Media.MaxAttempts)
	}
	if cfg.Publish.Dir != "/srv/blog/source/_posts" {
		t.Errorf("publish.dir = %q, want %q", cfg.Publish.Dir, "/srv/blog/source/_posts")
	}
}

func TestLoadConfigRemote(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// First reply fails so the load has to retry
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "feed:\n  user_id: \"777000\"\n  page_delay: 7\n")
	}))
	defer server.Close()

	cfg, err := LoadConfig(server.URL + "/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Feed.UserID != "777000" {
		t.Errorf("feed.user_id = %q, want %q", cfg.Feed.UserID, "777000")
	}
	if cfg.PageDelay() != 7*time.Second {
		t.Errorf("PageDelay() = %v, want 7s", cfg.PageDelay())
	}
	if cfg.Media.Cooldown != 180 {
		t.Errorf("media.cooldown = %d, want default 180", cfg.Media.Cooldown)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestLoadConfigRemoteNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	if _, err := LoadConfig(server.URL + "/config.yaml"); err == nil {
		t.Fatal("LoadConfig() accepted a 404 remote config")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		var c Config
		c.Feed.UserID = "555000"
		c.Feed.SessionCookie = "SUB=abc"
		c.Feed.BaseURL = "https://example.com/api"
		return &c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing user id", func(c *Config) { c.Feed.UserID = "" }, true},
		{"missing session cookie", func(c *Config) { c.Feed.SessionCookie = "" }, true},
		{"missing base url", func(c *Config) { c.Feed.BaseURL = "" }, true},
		{"negative cooldown", func(c *Config) { c.Media.Cooldown = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
