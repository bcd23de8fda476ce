// Package config loads and validates the application configuration.
package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/luokai/weiboarchive/pkg/filesystem"
	httputil "github.com/luokai/weiboarchive/pkg/http"
)

// Config holds the central application configuration
type Config struct {
	// Feed source configuration
	Feed struct {
		UserID        string `mapstructure:"user_id"`        // Timeline owner's numeric ID
		SessionCookie string `mapstructure:"session_cookie"` // Opaque session credential sent with every feed request
		BaseURL       string `mapstructure:"base_url"`       // Feed API base URL
		PageDelay     int    `mapstructure:"page_delay"`     // Seconds between page fetches
	} `mapstructure:"feed"`

	// Storage directories
	Storage struct {
		PagesDir string `mapstructure:"pages_dir"` // Raw API pages, date-bucketed
		DocsDir  string `mapstructure:"docs_dir"`  // Rendered markdown documents
		MediaDir string `mapstructure:"media_dir"` // Downloaded media assets
		IndexDB  string `mapstructure:"index_db"`  // Archive index database path
	} `mapstructure:"storage"`

	// Media download behaviour
	Media struct {
		Cooldown    int `mapstructure:"cooldown"`     // Seconds between download retries
		MaxAttempts int `mapstructure:"max_attempts"` // 0 retries forever
	} `mapstructure:"media"`

	// Publishing target
	Publish struct {
		Dir        string `mapstructure:"dir"`         // Destination content directory
		BuilderCmd string `mapstructure:"builder_cmd"` // Site builder binary
		BuilderArg string `mapstructure:"builder_arg"` // Site builder subcommand
	} `mapstructure:"publish"`
}

// MediaCooldown returns the media retry cooldown as a duration
func (c *Config) MediaCooldown() time.Duration {
	return time.Duration(c.Media.Cooldown) * time.Second
}

// PageDelay returns the delay between page fetches as a duration
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Feed.PageDelay) * time.Second
}

// LoadConfig loads the configuration from a local file or, when path is
// an http(s) URL, from a remote endpoint
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	setDefaults()

	if isRemotePath(path) {
		data, err := fetchRemoteConfig(context.Background(), path)
		if err != nil {
			return nil, err
		}
		viper.SetConfigType("yaml")
		if err := viper.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("error parsing remote config: %w", err)
		}
		return unmarshalConfig()
	}

	// Relative paths: current directory first, then executable directory
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			if execPath, err := filesystem.GetDefaultPath(path); err == nil {
				if _, err := os.Stat(execPath); err == nil {
					path = execPath
				}
			}
		}
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults and flags still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	return unmarshalConfig()
}

func setDefaults() {
	viper.SetDefault("feed.user_id", "")
	viper.SetDefault("feed.session_cookie", "")
	viper.SetDefault("feed.base_url", "https://m.weibo.cn/api/container")
	viper.SetDefault("feed.page_delay", 1)

	viper.SetDefault("storage.pages_dir", "archive/pages")
	viper.SetDefault("storage.docs_dir", "archive/docs")
	viper.SetDefault("storage.media_dir", "archive/images")
	viper.SetDefault("storage.index_db", "archive/index.db")

	viper.SetDefault("media.cooldown", 180)
	viper.SetDefault("media.max_attempts", 0)

	viper.SetDefault("publish.dir", "")
	viper.SetDefault("publish.builder_cmd", "hexo")
	viper.SetDefault("publish.builder_arg", "generate")
}

func unmarshalConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

func isRemotePath(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// fetchRemoteConfig retrieves a configuration file over HTTP with the
// retrying client; transient upstream failures do not fail the load.
func fetchRemoteConfig(ctx context.Context, url string) ([]byte, error) {
	resp, err := httputil.NewClient(nil).Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote config: %w", err)
	}

	if err := httputil.EnsureStatusOK(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch remote config: %w", err)
	}

	return httputil.ReadResponseBody(resp)
}

// Validate checks that the configuration is usable for a full run
func (c *Config) Validate() error {
	if c.Feed.UserID == "" {
		return fmt.Errorf("feed.user_id is required")
	}
	if c.Feed.SessionCookie == "" {
		return fmt.Errorf("feed.session_cookie is required")
	}
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Media.Cooldown < 0 {
		return fmt.Errorf("media.cooldown must not be negative")
	}
	return nil
}
