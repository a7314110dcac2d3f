package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

// EmergeProvider implements the provider contract for Gentoo. Package
// queries require qlist from app-portage/portage-utils.
type EmergeProvider struct {
	CommandManager cm.CommandManager
	Reporter       Reporter
	unsupportedCapabilities
}

func NewEmergeProvider(runner cm.CommandManager) *EmergeProvider {
	return &EmergeProvider{
		CommandManager:          runner,
		unsupportedCapabilities: unsupportedCapabilities{providerName: "emerge"},
	}
}

var _ Provider = (*EmergeProvider)(nil)

// Matches "name-version" atoms, version optionally carrying a -rN
// revision suffix, e.g. "gcc-13.2.1_p20240113-r1".
var atomVersionRe = regexp.MustCompile(`^(.+)-([0-9][^-]*(?:-r[0-9]+)?)$`)

func (p *EmergeProvider) Name() string { return "emerge" }

func (p *EmergeProvider) Install(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "emerge",
		Args:    append([]string{"--noreplace"}, pkgs...),
		Sudo:    true,
	})
}

func (p *EmergeProvider) Remove(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "emerge",
		Args:    append([]string{"-C"}, pkgs...),
		Sudo:    true,
	})
}

// Update syncs the portage tree then rebuilds @world, excluding the
// ignore set via --exclude flags. A failed sync is part of the returned
// error even when the rebuild itself succeeds.
func (p *EmergeProvider) Update(ctx context.Context, ignore []string) error {
	var errs *multierror.Error

	if err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "emerge",
		Args:    []string{"--sync"},
		Sudo:    true,
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("refreshing metadata: %w", err))
	}

	args := []string{"-uDN"}
	for _, pkg := range dedupe(ignore) {
		args = append(args, "--exclude="+pkg)
	}
	args = append(args, "@world")
	if err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "emerge",
		Args:    args,
		Sudo:    true,
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("upgrade: %w", err))
	}

	return errs.ErrorOrNil()
}

func (p *EmergeProvider) Search(ctx context.Context, term string) error {
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "emerge",
		Args:    []string{"--search", term},
	})
}

func (p *EmergeProvider) InstalledPackages(ctx context.Context) (map[string]struct{}, error) {
	packages := make(map[string]struct{})
	if !p.CommandManager.HasCommand(ctx, "qlist") {
		orDefault(p.Reporter).Warnf("'qlist' not found; install it first: %s", p.Dependencies()["portage-utils"])
		return packages, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "qlist",
		Args:    []string{"-I"},
	})
	if err != nil {
		return nil, fmt.Errorf("querying installed packages: %w", err)
	}

	// qlist prints "category/name"; the contract wants bare names.
	for _, line := range nonEmptyLines(result.STDOUT) {
		if idx := strings.LastIndex(line, "/"); idx >= 0 {
			line = line[idx+1:]
		}
		if line != "" {
			packages[line] = struct{}{}
		}
	}
	return packages, nil
}

func (p *EmergeProvider) InstalledPackagesWithVersions(ctx context.Context) (map[string]string, error) {
	versions := make(map[string]string)
	if !p.CommandManager.HasCommand(ctx, "qlist") {
		return versions, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "qlist",
		Args:    []string{"-Iv"},
	})
	if err != nil {
		return nil, fmt.Errorf("querying installed versions: %w", err)
	}

	for _, line := range nonEmptyLines(result.STDOUT) {
		if idx := strings.LastIndex(line, "/"); idx >= 0 {
			line = line[idx+1:]
		}
		name, version, ok := splitAtom(line)
		if !ok {
			continue
		}
		versions[name] = version
	}
	return versions, nil
}

// splitAtom separates "name-1.2.3-r1" into name and version. Reports
// false for lines that do not carry a version.
func splitAtom(atom string) (name, version string, ok bool) {
	m := atomVersionRe.FindStringSubmatch(atom)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func (p *EmergeProvider) PackageVersion(ctx context.Context, name string) (string, error) {
	if !p.CommandManager.HasCommand(ctx, "qlist") {
		return "", nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "qlist",
		Args:    []string{"-Iv", name},
	})
	if err != nil || result.ExitCode != 0 {
		return "", nil
	}

	for _, line := range nonEmptyLines(result.STDOUT) {
		if idx := strings.LastIndex(line, "/"); idx >= 0 {
			line = line[idx+1:]
		}
		atomName, version, ok := splitAtom(line)
		if ok && atomName == name {
			return version, nil
		}
	}
	return "", nil
}

// CompareVersions uses qatom --compare, which prints a relation like
// "1.2 < 1.3" on stdout.
func (p *EmergeProvider) CompareVersions(ctx context.Context, a, b string) (Ordering, error) {
	if !p.CommandManager.HasCommand(ctx, "qatom") {
		slog.Warn("qatom not found, falling back to lexical version comparison")
		return lexicalCompare(a, b), nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "qatom",
		Args:    []string{"--compare", a, b},
	})
	if err != nil {
		return Equal, fmt.Errorf("qatom: %w", err)
	}

	switch {
	case strings.Contains(result.STDOUT, ">"):
		return Greater, nil
	case strings.Contains(result.STDOUT, "<"):
		return Less, nil
	default:
		return Equal, nil
	}
}

func (p *EmergeProvider) ShowPackageVersions(ctx context.Context, name string, w io.Writer) error {
	installed, _ := p.PackageVersion(ctx, name)
	if installed == "" {
		fmt.Fprintf(w, "Installed: (not installed)\n")
	} else {
		fmt.Fprintf(w, "Installed: %s\n", installed)
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "emerge",
		Args:    []string{"--search", "^" + name + "$"},
	})
	repoVersion := ""
	if err == nil && result.ExitCode == 0 {
		for _, line := range nonEmptyLines(result.STDOUT) {
			if strings.HasPrefix(line, "Latest version available:") {
				repoVersion = strings.TrimSpace(strings.TrimPrefix(line, "Latest version available:"))
				break
			}
		}
	}
	if repoVersion == "" {
		fmt.Fprintf(w, "Available: (not found in repositories)\n")
	} else {
		fmt.Fprintf(w, "Available: %s\n", repoVersion)
	}

	fmt.Fprintf(w, "In cache: (check /var/cache/distfiles)\n")
	return nil
}

func (p *EmergeProvider) Dependencies() DependencyMap {
	return DependencyMap{
		"yq":                 "sudo emerge app-misc/yq",
		"timeshift":          "sudo emerge app-backup/timeshift",
		"flatpak":            "sudo emerge sys-apps/flatpak",
		"portage-utils":      "sudo emerge app-portage/portage-utils",
		"eselect-repository": "sudo emerge app-eselect/eselect-repository",
	}
}

func (p *EmergeProvider) BasePackages() BasePackageSet {
	return BasePackageSet{
		Description: "Base packages for all Gentoo machines",
		Packages: []string{
			"app-portage/portage-utils",
			"app-misc/yq",
			"net-misc/networkmanager",
			"app-editors/vim",
			"dev-vcs/git",
		},
	}
}

// InstallOverlay enables each overlay through eselect-repository, syncs
// once if any overlay was newly enabled, then installs the merged set.
func (p *EmergeProvider) InstallOverlay(ctx context.Context, sources map[string][]string) error {
	deps := p.Dependencies()
	flow := sourceInstall{
		Tool:     "eselect",
		ToolHint: deps["eselect-repository"],
		Register: p.enableOverlay,
		Refresh: func(ctx context.Context) error {
			return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
				Command: "emaint",
				Args:    []string{"sync", "-a"},
				Sudo:    true,
			})
		},
		Install:  p.Install,
		Reporter: p.Reporter,
	}
	return flow.run(ctx, p.CommandManager, sources)
}

func (p *EmergeProvider) enableOverlay(ctx context.Context, source string) (sourceOutcome, error) {
	enabled, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "eselect",
		Args:    []string{"repository", "list", "-i"},
	})
	if err == nil && strings.Contains(enabled.STDOUT, source) {
		return sourceAlreadyPresent, nil
	}

	_, err = runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "eselect",
		Args:    []string{"repository", "enable", source},
		Sudo:    true,
	})
	if err != nil {
		return sourceFailed, err
	}
	return sourceAdded, nil
}

func (p *EmergeProvider) InstallFlatpak(ctx context.Context, pkgs []string) error {
	return installFlatpaks(ctx, p.CommandManager, p.Dependencies(), p.Reporter, pkgs)
}
