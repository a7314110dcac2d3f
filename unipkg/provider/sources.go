package provider

import (
	"context"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

// sourceOutcome classifies one source-registration attempt.
type sourceOutcome int

const (
	sourceAdded sourceOutcome = iota
	sourceAlreadyPresent
	sourceFailed
)

// sourceInstall drives the shared secondary-source flow used for PPAs,
// COPR projects, OBS repositories and Gentoo overlays:
//
//  1. preflight the registration tool;
//  2. register each source, classifying the outcome and skipping the
//     packages of any source that failed;
//  3. refresh repository metadata exactly once if anything was newly
//     added (a refresh failure aborts the install);
//  4. install the merged, deduplicated package set in one call.
type sourceInstall struct {
	// Tool must be on PATH before any source is attempted; ToolHint is
	// the remediation command shown when it is not.
	Tool     string
	ToolHint string

	// Register adds one source, reporting whether it was newly added or
	// already present.
	Register func(ctx context.Context, source string) (sourceOutcome, error)

	// Refresh syncs repository metadata after new sources were added.
	Refresh func(ctx context.Context) error

	// Install performs the aggregate install of the surviving packages.
	Install func(ctx context.Context, pkgs []string) error

	Reporter Reporter
}

func (s sourceInstall) run(ctx context.Context, runner cm.CommandManager, sources map[string][]string) error {
	if len(sources) == 0 {
		return nil
	}

	reporter := orDefault(s.Reporter)

	if s.Tool != "" && !runner.HasCommand(ctx, s.Tool) {
		return &ToolMissingError{Tool: s.Tool, InstallHint: s.ToolHint}
	}

	var errs *multierror.Error
	var pending []string
	needRefresh := false

	for _, source := range sortedKeys(sources) {
		outcome, err := s.Register(ctx, source)
		switch outcome {
		case sourceAdded:
			reporter.Infof("Added source %s", source)
			needRefresh = true
			pending = append(pending, sources[source]...)
		case sourceAlreadyPresent:
			pending = append(pending, sources[source]...)
		default:
			reporter.Warnf("Skipping source %s: %v", source, err)
			errs = multierror.Append(errs, fmt.Errorf("source %s: %w", source, err))
		}
	}

	if needRefresh {
		if err := s.Refresh(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("refreshing repository metadata: %w", err))
			return errs.ErrorOrNil()
		}
	}

	pending = dedupe(pending)
	if len(pending) > 0 {
		if err := s.Install(ctx, pending); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}
