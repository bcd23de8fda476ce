// Package main provides the CLI entry point for weibo-archive.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/luokai/weiboarchive/internal/archiver"
	"github.com/luokai/weiboarchive/internal/config"
	"github.com/luokai/weiboarchive/internal/preview"
)

// CLI structure
var CLI struct {
	Config string `help:"Configuration file path or http(s) URL" default:"config.yaml"`
	Debug  bool   `help:"Enable debug logging" default:"false"`

	UserID        string `help:"Timeline owner's user ID (overrides config)"`
	SessionCookie string `help:"Session credential for the feed API (overrides config)"`
	PublishDir    string `help:"Publish target directory (overrides config)"`

	Run       struct{} `cmd:"" help:"Fetch, transform and publish in sequence."`
	Fetch     struct{} `cmd:"" help:"Fetch and persist feed pages only."`
	Transform struct{} `cmd:"" help:"Transform persisted pages into documents."`
	Publish   struct{} `cmd:"" help:"Copy documents into the publish directory and rebuild the site."`
	Preview   struct{} `cmd:"" help:"Browse rendered documents interactively."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("weibo-archive"),
		kong.Description("Archive a user's timeline into a static site content directory."),
	)

	if CLI.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelInfo)
	}

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// CLI flags override the config file
	if CLI.UserID != "" {
		cfg.Feed.UserID = CLI.UserID
	}
	if CLI.SessionCookie != "" {
		cfg.Feed.SessionCookie = CLI.SessionCookie
	}
	if CLI.PublishDir != "" {
		cfg.Publish.Dir = CLI.PublishDir
	}

	switch ctx.Command() {
	case "run":
		runStage(cfg, true, (*archiver.Archiver).Run)

	case "fetch":
		runStage(cfg, true, (*archiver.Archiver).Fetch)

	case "transform":
		runStage(cfg, false, (*archiver.Archiver).Transform)

	case "publish":
		runStage(cfg, false, (*archiver.Archiver).Publish)

	case "preview":
		if err := preview.Run(cfg.Storage.DocsDir); err != nil {
			slog.Error("Preview failed", "error", err)
			os.Exit(1)
		}

	default:
		panic(ctx.Command())
	}
}

// runStage builds the pipeline and executes one stage. Stages that talk
// to the feed API need the full credential set validated up front.
func runStage(cfg *config.Config, needsCredentials bool, stage func(*archiver.Archiver, context.Context) error) {
	if needsCredentials {
		if err := cfg.Validate(); err != nil {
			slog.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}
	}

	arch, err := archiver.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize archiver", "error", err)
		os.Exit(1)
	}
	stageErr := stage(arch, context.Background())

	if closeErr := arch.Close(); closeErr != nil {
		slog.Error("Failed to close archive index", "error", closeErr)
	}

	if stageErr != nil {
		slog.Error("Stage failed", "error", stageErr)
		os.Exit(1)
	}
}
