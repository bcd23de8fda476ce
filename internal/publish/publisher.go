// Package publish merges rendered documents into an external static
// site's content directory and triggers a site rebuild.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/luokai/weiboarchive/pkg/filesystem"
)

// Publisher copies documents into the publish target without ever
// overwriting a file already there, then invokes the site builder.
type Publisher struct {
	srcDir     string
	dstDir     string
	builderCmd string
	builderArg string
}

// NewPublisher creates a publisher from the docs directory into dstDir
func NewPublisher(srcDir, dstDir, builderCmd, builderArg string) *Publisher {
	return &Publisher{
		srcDir:     srcDir,
		dstDir:     dstDir,
		builderCmd: builderCmd,
		builderArg: builderArg,
	}
}

// Publish copies every document not yet present at the destination and
// then rebuilds the site. A missing source or destination directory
// aborts this stage only; a builder failure is reported, not escalated.
func (p *Publisher) Publish(ctx context.Context) error {
	if !filesystem.DirExists(p.srcDir) {
		return fmt.Errorf("document directory does not exist: %s", p.srcDir)
	}
	if !filesystem.DirExists(p.dstDir) {
		return fmt.Errorf("publish directory does not exist: %s", p.dstDir)
	}

	entries, err := os.ReadDir(p.srcDir)
	if err != nil {
		return fmt.Errorf("failed to read document directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		src := filepath.Join(p.srcDir, entry.Name())
		dst := filepath.Join(p.dstDir, entry.Name())

		// Presence of the name means "already published"
		if filesystem.FileExists(dst) {
			slog.Info("Skipping already published document", "name", entry.Name())
			continue
		}

		if err := filesystem.CopyFile(src, dst); err != nil {
			slog.Error("Failed to publish document", "name", entry.Name(), "error", err)
			continue
		}
		slog.Info("Published document", "name", entry.Name())
	}

	p.rebuildSite(ctx)
	return nil
}

// rebuildSite runs the external site builder in the publish target's
// parent directory
func (p *Publisher) rebuildSite(ctx context.Context) {
	if p.builderCmd == "" {
		return
	}

	cmd := exec.CommandContext(ctx, p.builderCmd, p.builderArg)
	cmd.Dir = filepath.Dir(p.dstDir)

	output, err := cmd.CombinedOutput()
	if err != nil {
		slog.Error("Site builder failed",
			"command", p.builderCmd,
			"arg", p.builderArg,
			"workdir", cmd.Dir,
			"output", string(output),
			"error", err)
		return
	}
	slog.Info("Site rebuilt", "command", p.builderCmd, "arg", p.builderArg)
}
