// Package srcrepo keeps a git checkout of a source-package tree in sync
// on the target host. The Void provider uses it for void-packages.
package srcrepo

import (
	"context"
	"fmt"
	"log/slog"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

// RepoSync manages one checkout through the command manager, so it works
// on remote hosts the same way it does locally.
type RepoSync struct {
	CommandManager cm.CommandManager
	Path           string
	URL            string
	Branch         string
}

// Present reports whether the checkout already exists.
func (r *RepoSync) Present(ctx context.Context) bool {
	result, err := r.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "test",
		Args:    []string{"-d", r.Path + "/.git"},
	})
	return err == nil && result.ExitCode == 0
}

// Clone creates the checkout from scratch.
func (r *RepoSync) Clone(ctx context.Context) error {
	_, err := r.CommandManager.Run(ctx, cm.CommandConfig{
		Command:     "git",
		Args:        []string{"clone", r.URL, r.Path},
		Interactive: true,
	})
	if err != nil {
		return fmt.Errorf("cloning %s: %w", r.URL, err)
	}
	return nil
}

// Pull fast-forwards the checkout to the tip of the configured branch.
func (r *RepoSync) Pull(ctx context.Context) error {
	branch := r.Branch
	if branch == "" {
		branch = "master"
	}
	_, err := r.CommandManager.Run(ctx, cm.CommandConfig{
		Command:     "git",
		Args:        []string{"pull", "origin", branch},
		Dir:         r.Path,
		Interactive: true,
	})
	if err != nil {
		return fmt.Errorf("pulling %s: %w", branch, err)
	}
	return nil
}

// Ensure makes the checkout usable: clone when missing, otherwise pull.
// A failed pull is logged and tolerated; building from a slightly stale
// tree beats aborting.
func (r *RepoSync) Ensure(ctx context.Context) error {
	if !r.Present(ctx) {
		return r.Clone(ctx)
	}
	if err := r.Pull(ctx); err != nil {
		slog.Warn("Repo pull failed, proceeding with existing checkout", "path", r.Path, "error", err)
	}
	return nil
}
