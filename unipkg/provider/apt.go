package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

// AptProvider implements the provider contract for Debian and Ubuntu.
type AptProvider struct {
	CommandManager cm.CommandManager
	Reporter       Reporter
	unsupportedCapabilities
}

func NewAptProvider(runner cm.CommandManager) *AptProvider {
	return &AptProvider{
		CommandManager:          runner,
		unsupportedCapabilities: unsupportedCapabilities{providerName: "apt"},
	}
}

var _ Provider = (*AptProvider)(nil)

// Prompts from apt must never block an unattended run.
var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

func (p *AptProvider) Name() string { return "apt" }

func (p *AptProvider) Install(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}

	reporter := orDefault(p.Reporter)
	var errs *multierror.Error
	for i, pkg := range pkgs {
		reporter.Progress(pkg, i+1, len(pkgs))
		err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
			Command: "apt",
			Args:    []string{"install", "-y", pkg},
			Sudo:    true,
			Env:     aptEnv,
		})
		if err != nil {
			reporter.Warnf("Failed to install %s: %v", pkg, err)
			errs = multierror.Append(errs, fmt.Errorf("install %s: %w", pkg, err))
		}
	}
	return errs.ErrorOrNil()
}

func (p *AptProvider) Remove(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "apt",
		Args:    append([]string{"remove", "-y"}, pkgs...),
		Sudo:    true,
		Env:     aptEnv,
	})
}

// Update refreshes metadata and upgrades everything except the ignore
// set. Holds placed for the ignore set are released even when the
// upgrade fails, so the hold state always matches the pre-call state.
func (p *AptProvider) Update(ctx context.Context, ignore []string) error {
	ignore = dedupe(ignore)

	var errs *multierror.Error
	var held []string
	for _, pkg := range ignore {
		_, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
			Command: "apt-mark",
			Args:    []string{"hold", pkg},
			Sudo:    true,
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("holding %s: %w", pkg, err))
			continue
		}
		held = append(held, pkg)
	}

	if err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "apt",
		Args:    []string{"update"},
		Sudo:    true,
		Env:     aptEnv,
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("refreshing metadata: %w", err))
	}

	if err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "apt",
		Args:    []string{"upgrade", "-y"},
		Sudo:    true,
		Env:     aptEnv,
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("upgrade: %w", err))
	}

	for _, pkg := range held {
		_, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
			Command: "apt-mark",
			Args:    []string{"unhold", pkg},
			Sudo:    true,
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("releasing hold on %s: %w", pkg, err))
		}
	}

	return errs.ErrorOrNil()
}

func (p *AptProvider) Search(ctx context.Context, term string) error {
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "apt",
		Args:    []string{"search", term},
	})
}

func (p *AptProvider) InstalledPackages(ctx context.Context) (map[string]struct{}, error) {
	packages := make(map[string]struct{})
	if !p.CommandManager.HasCommand(ctx, "dpkg-query") {
		return packages, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dpkg-query",
		Args:    []string{"-W", "-f", "${binary:Package}\n"},
	})
	if err != nil {
		return nil, fmt.Errorf("querying installed packages: %w", err)
	}

	for _, line := range nonEmptyLines(result.STDOUT) {
		packages[line] = struct{}{}
	}
	return packages, nil
}

func (p *AptProvider) InstalledPackagesWithVersions(ctx context.Context) (map[string]string, error) {
	versions := make(map[string]string)
	if !p.CommandManager.HasCommand(ctx, "dpkg-query") {
		return versions, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dpkg-query",
		Args:    []string{"-W", "-f", "${binary:Package} ${Version}\n"},
	})
	if err != nil {
		return nil, fmt.Errorf("querying installed versions: %w", err)
	}

	for _, line := range nonEmptyLines(result.STDOUT) {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		versions[fields[0]] = fields[1]
	}
	return versions, nil
}

func (p *AptProvider) PackageVersion(ctx context.Context, name string) (string, error) {
	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dpkg-query",
		Args:    []string{"-W", "-f", "${Version}", name},
	})
	if err != nil || result.ExitCode != 0 {
		return "", nil
	}
	return strings.TrimSpace(result.STDOUT), nil
}

// CompareVersions orders two versions under dpkg rules. The exit code of
// dpkg --compare-versions carries the answer: 0 means the relation holds,
// 1 means it does not; anything else is a dpkg failure (e.g. a malformed
// version) and surfaces as an error.
func (p *AptProvider) CompareVersions(ctx context.Context, a, b string) (Ordering, error) {
	if !p.CommandManager.HasCommand(ctx, "dpkg") {
		slog.Warn("dpkg not found, falling back to lexical version comparison")
		return lexicalCompare(a, b), nil
	}

	gt, err := p.versionRelation(ctx, a, "gt", b)
	if err != nil {
		return Equal, err
	}
	if gt {
		return Greater, nil
	}

	lt, err := p.versionRelation(ctx, a, "lt", b)
	if err != nil {
		return Equal, err
	}
	if lt {
		return Less, nil
	}

	return Equal, nil
}

func (p *AptProvider) versionRelation(ctx context.Context, a, op, b string) (bool, error) {
	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dpkg",
		Args:    []string{"--compare-versions", a, op, b},
	})
	switch result.ExitCode {
	case 0:
		if err != nil {
			return false, fmt.Errorf("dpkg --compare-versions: %w", err)
		}
		return true, nil
	case 1:
		return false, nil
	default:
		return false, fmt.Errorf("dpkg --compare-versions: unexpected exit code %d", result.ExitCode)
	}
}

func (p *AptProvider) ShowPackageVersions(ctx context.Context, name string, w io.Writer) error {
	installed, _ := p.PackageVersion(ctx, name)
	if installed == "" {
		fmt.Fprintf(w, "Installed: (not installed)\n")
	} else {
		fmt.Fprintf(w, "Installed: %s\n", installed)
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "apt-cache",
		Args:    []string{"policy", name},
	})
	if err != nil || result.ExitCode != 0 {
		fmt.Fprintf(w, "Available: (not found in repositories)\n")
	} else {
		candidate := ""
		for _, line := range nonEmptyLines(result.STDOUT) {
			if strings.HasPrefix(line, "Candidate:") {
				candidate = strings.TrimSpace(strings.TrimPrefix(line, "Candidate:"))
				break
			}
		}
		if candidate == "" || candidate == "(none)" {
			fmt.Fprintf(w, "Available: (not found in repositories)\n")
		} else {
			fmt.Fprintf(w, "Available: %s\n", candidate)
		}
	}

	fmt.Fprintf(w, "In cache: (check /var/cache/apt/archives)\n")
	return nil
}

func (p *AptProvider) Dependencies() DependencyMap {
	return DependencyMap{
		"yq":                 "sudo apt install yq",
		"timeshift":          "sudo apt install timeshift",
		"flatpak":            "sudo apt install flatpak",
		"add-apt-repository": "sudo apt install software-properties-common",
	}
}

func (p *AptProvider) BasePackages() BasePackageSet {
	return BasePackageSet{
		Description: "Base packages for all Debian-based machines",
		Packages: []string{
			"build-essential",
			"linux-image-generic",
			"network-manager",
			"vim",
			"git",
			"yq",
		},
	}
}

// InstallPPA registers each PPA, refreshes metadata once if anything new
// was added, then installs the merged package set in a single call.
func (p *AptProvider) InstallPPA(ctx context.Context, sources map[string][]string) error {
	deps := p.Dependencies()
	flow := sourceInstall{
		Tool:     "add-apt-repository",
		ToolHint: deps["add-apt-repository"],
		Register: p.registerPPA,
		Refresh: func(ctx context.Context) error {
			return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
				Command: "apt",
				Args:    []string{"update"},
				Sudo:    true,
				Env:     aptEnv,
			})
		},
		Install:  p.Install,
		Reporter: p.Reporter,
	}
	return flow.run(ctx, p.CommandManager, sources)
}

func (p *AptProvider) registerPPA(ctx context.Context, source string) (sourceOutcome, error) {
	if p.ppaRegistered(ctx, source) {
		return sourceAlreadyPresent, nil
	}

	// -n skips the per-source apt update; the flow batches one refresh
	// for the whole set.
	_, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "add-apt-repository",
		Args:    []string{"-y", "-n", "ppa:" + source},
		Sudo:    true,
		Env:     aptEnv,
	})
	if err != nil {
		return sourceFailed, err
	}
	return sourceAdded, nil
}

func (p *AptProvider) ppaRegistered(ctx context.Context, source string) bool {
	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "sh",
		Args:    []string{"-c", "grep -rh ^deb /etc/apt/sources.list /etc/apt/sources.list.d/ 2>/dev/null"},
	})
	if err != nil {
		return false
	}
	return strings.Contains(result.STDOUT, "launchpad") && strings.Contains(result.STDOUT, source)
}

func (p *AptProvider) InstallFlatpak(ctx context.Context, pkgs []string) error {
	return installFlatpaks(ctx, p.CommandManager, p.Dependencies(), p.Reporter, pkgs)
}

func (p *AptProvider) Downgrade(ctx context.Context, pkg, version string) error {
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "apt",
		Args:    []string{"install", "-y", "--allow-downgrades", pkg + "=" + version},
		Sudo:    true,
		Env:     aptEnv,
	})
}
