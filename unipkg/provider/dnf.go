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

// DnfProvider implements the provider contract for Fedora-family systems.
type DnfProvider struct {
	CommandManager cm.CommandManager
	Reporter       Reporter
	unsupportedCapabilities
}

func NewDnfProvider(runner cm.CommandManager) *DnfProvider {
	return &DnfProvider{
		CommandManager:          runner,
		unsupportedCapabilities: unsupportedCapabilities{providerName: "dnf"},
	}
}

var _ Provider = (*DnfProvider)(nil)

func (p *DnfProvider) Name() string { return "dnf" }

func (p *DnfProvider) Install(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dnf",
		Args:    append([]string{"install", "-y"}, pkgs...),
		Sudo:    true,
	})
}

func (p *DnfProvider) Remove(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dnf",
		Args:    append([]string{"remove", "-y"}, pkgs...),
		Sudo:    true,
	})
}

// Update excludes the ignore set with --exclude flags, so there is no
// hold state to restore afterwards. A failed metadata refresh is part of
// the returned error even when the upgrade itself succeeds.
func (p *DnfProvider) Update(ctx context.Context, ignore []string) error {
	var errs *multierror.Error

	if err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dnf",
		Args:    []string{"makecache", "--refresh"},
		Sudo:    true,
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("refreshing metadata: %w", err))
	}

	args := []string{"upgrade", "-y"}
	for _, pkg := range dedupe(ignore) {
		args = append(args, "--exclude="+pkg)
	}
	if err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dnf",
		Args:    args,
		Sudo:    true,
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("upgrade: %w", err))
	}

	return errs.ErrorOrNil()
}

func (p *DnfProvider) Search(ctx context.Context, term string) error {
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dnf",
		Args:    []string{"search", term},
	})
}

func (p *DnfProvider) InstalledPackages(ctx context.Context) (map[string]struct{}, error) {
	packages := make(map[string]struct{})
	if !p.CommandManager.HasCommand(ctx, "rpm") {
		return packages, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "rpm",
		Args:    []string{"-qa", "--qf", "%{NAME}\n"},
	})
	if err != nil {
		return nil, fmt.Errorf("querying installed packages: %w", err)
	}

	for _, line := range nonEmptyLines(result.STDOUT) {
		packages[line] = struct{}{}
	}
	return packages, nil
}

func (p *DnfProvider) InstalledPackagesWithVersions(ctx context.Context) (map[string]string, error) {
	versions := make(map[string]string)
	if !p.CommandManager.HasCommand(ctx, "rpm") {
		return versions, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "rpm",
		Args:    []string{"-qa", "--qf", "%{NAME} %{VERSION}\n"},
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

func (p *DnfProvider) PackageVersion(ctx context.Context, name string) (string, error) {
	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "rpm",
		Args:    []string{"-q", "--qf", "%{VERSION}", name},
	})
	if err != nil || result.ExitCode != 0 {
		return "", nil
	}
	return strings.TrimSpace(result.STDOUT), nil
}

// CompareVersions uses rpmdev-vercmp, whose exit code is the verdict:
// 11 when the first argument is newer, 12 when the second is, 0 on equal.
func (p *DnfProvider) CompareVersions(ctx context.Context, a, b string) (Ordering, error) {
	if !p.CommandManager.HasCommand(ctx, "rpmdev-vercmp") {
		slog.Warn("rpmdev-vercmp not found, falling back to lexical version comparison")
		return lexicalCompare(a, b), nil
	}

	result, _ := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "rpmdev-vercmp",
		Args:    []string{a, b},
	})
	switch result.ExitCode {
	case 11:
		return Greater, nil
	case 12:
		return Less, nil
	case 0:
		return Equal, nil
	default:
		return Equal, fmt.Errorf("rpmdev-vercmp: unexpected exit code %d", result.ExitCode)
	}
}

func (p *DnfProvider) ShowPackageVersions(ctx context.Context, name string, w io.Writer) error {
	installed, _ := p.PackageVersion(ctx, name)
	if installed == "" {
		fmt.Fprintf(w, "Installed: (not installed)\n")
	} else {
		fmt.Fprintf(w, "Installed: %s\n", installed)
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dnf",
		Args:    []string{"--quiet", "repoquery", "--qf", "%{version}", "--latest-limit", "1", name},
	})
	repoVersion := strings.TrimSpace(result.STDOUT)
	if err != nil || repoVersion == "" {
		fmt.Fprintf(w, "Available: (not found in repositories)\n")
	} else {
		fmt.Fprintf(w, "Available: %s\n", repoVersion)
	}

	fmt.Fprintf(w, "In cache: (check /var/cache/dnf)\n")
	return nil
}

func (p *DnfProvider) Dependencies() DependencyMap {
	return DependencyMap{
		"yq":          "sudo dnf install -y yq",
		"timeshift":   "sudo dnf install -y timeshift",
		"flatpak":     "sudo dnf install -y flatpak",
		"rpmdevtools": "sudo dnf install -y rpmdevtools",
		"dnf-plugins": "sudo dnf install -y dnf-plugins-core",
	}
}

func (p *DnfProvider) BasePackages() BasePackageSet {
	return BasePackageSet{
		Description: "Base packages for all Fedora-based machines",
		Packages: []string{
			"@development-tools",
			"NetworkManager",
			"vim",
			"git",
			"yq",
		},
	}
}

// InstallCOPR enables each COPR project, refreshes metadata once if any
// project was newly enabled, then installs the merged package set.
func (p *DnfProvider) InstallCOPR(ctx context.Context, sources map[string][]string) error {
	deps := p.Dependencies()
	flow := sourceInstall{
		Tool:     "dnf",
		ToolHint: deps["dnf-plugins"],
		Register: p.enableCOPR,
		Refresh: func(ctx context.Context) error {
			return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
				Command: "dnf",
				Args:    []string{"makecache", "--refresh"},
				Sudo:    true,
			})
		},
		Install:  p.Install,
		Reporter: p.Reporter,
	}
	return flow.run(ctx, p.CommandManager, sources)
}

func (p *DnfProvider) enableCOPR(ctx context.Context, source string) (sourceOutcome, error) {
	enabled, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dnf",
		Args:    []string{"copr", "list", "--enabled"},
	})
	if err == nil && strings.Contains(enabled.STDOUT, source) {
		return sourceAlreadyPresent, nil
	}

	_, err = runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dnf",
		Args:    []string{"copr", "enable", "-y", source},
		Sudo:    true,
	})
	if err != nil {
		return sourceFailed, err
	}
	return sourceAdded, nil
}

func (p *DnfProvider) InstallFlatpak(ctx context.Context, pkgs []string) error {
	return installFlatpaks(ctx, p.CommandManager, p.Dependencies(), p.Reporter, pkgs)
}

func (p *DnfProvider) Downgrade(ctx context.Context, pkg, version string) error {
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "dnf",
		Args:    []string{"downgrade", "-y", pkg + "-" + version},
		Sudo:    true,
	})
}
