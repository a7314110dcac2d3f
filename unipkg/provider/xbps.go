package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/srcrepo"
)

const voidPackagesURL = "https://github.com/void-linux/void-packages.git"

// XbpsProvider implements the provider contract for Void Linux,
// including xbps-src source builds from a void-packages checkout.
type XbpsProvider struct {
	CommandManager cm.CommandManager
	Reporter       Reporter

	// SrcPath is the void-packages checkout used for source builds.
	SrcPath string

	unsupportedCapabilities
}

func NewXbpsProvider(runner cm.CommandManager) *XbpsProvider {
	home, _ := os.UserHomeDir()
	return &XbpsProvider{
		CommandManager:          runner,
		SrcPath:                 filepath.Join(home, "void-packages"),
		unsupportedCapabilities: unsupportedCapabilities{providerName: "xbps"},
	}
}

var _ Provider = (*XbpsProvider)(nil)

func (p *XbpsProvider) Name() string { return "xbps" }

// Install runs one xbps-install per package so the operator sees
// per-package progress; a single failure does not abort the rest.
func (p *XbpsProvider) Install(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}

	reporter := orDefault(p.Reporter)
	var errs *multierror.Error
	for i, pkg := range pkgs {
		// xbps-install pins versions as 'package-1.0_1', not 'package=1.0'.
		name := strings.ReplaceAll(pkg, "==", "-")
		name = strings.ReplaceAll(name, "=", "")

		reporter.Progress(name, i+1, len(pkgs))
		err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
			Command: "xbps-install",
			Args:    []string{"-y", name},
			Sudo:    true,
		})
		if err != nil {
			reporter.Warnf("Failed to install %s: %v", name, err)
			errs = multierror.Append(errs, fmt.Errorf("install %s: %w", name, err))
		}
	}
	return errs.ErrorOrNil()
}

func (p *XbpsProvider) Remove(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "xbps-remove",
		Args:    append([]string{"-y"}, pkgs...),
		Sudo:    true,
	})
}

// Update runs a full sync-and-upgrade, excluding the ignore set via
// --exclude flags.
func (p *XbpsProvider) Update(ctx context.Context, ignore []string) error {
	args := []string{"-Syu"}
	ignore = dedupe(ignore)
	if len(ignore) > 0 {
		orDefault(p.Reporter).Warnf("Ignoring %d packages: %s", len(ignore), strings.Join(ignore, ", "))
		for _, pkg := range ignore {
			args = append(args, "--exclude="+pkg)
		}
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "xbps-install",
		Args:    args,
		Sudo:    true,
	})
}

func (p *XbpsProvider) Search(ctx context.Context, term string) error {
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "xbps-query",
		Args:    []string{"-Rs", term},
	})
}

func (p *XbpsProvider) InstalledPackages(ctx context.Context) (map[string]struct{}, error) {
	packages := make(map[string]struct{})
	if !p.CommandManager.HasCommand(ctx, "xbps-query") {
		return packages, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "xbps-query",
		Args:    []string{"-l"},
	})
	if err != nil {
		return nil, fmt.Errorf("querying installed packages: %w", err)
	}

	for _, line := range nonEmptyLines(result.STDOUT) {
		name, _, ok := splitPkgver(installedPkgver(line))
		if !ok {
			continue
		}
		packages[name] = struct{}{}
	}
	return packages, nil
}

func (p *XbpsProvider) InstalledPackagesWithVersions(ctx context.Context) (map[string]string, error) {
	versions := make(map[string]string)
	if !p.CommandManager.HasCommand(ctx, "xbps-query") {
		return versions, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "xbps-query",
		Args:    []string{"-l"},
	})
	if err != nil {
		return nil, fmt.Errorf("querying installed versions: %w", err)
	}

	for _, line := range nonEmptyLines(result.STDOUT) {
		name, version, ok := splitPkgver(installedPkgver(line))
		if !ok {
			continue
		}
		versions[name] = version
	}
	return versions, nil
}

// installedPkgver extracts the pkgver column from an "ii pkg-1.0_1 desc"
// line of xbps-query -l.
func installedPkgver(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// splitPkgver separates "name-version_revision" at the last dash; xbps
// versions never contain one.
func splitPkgver(pkgver string) (name, version string, ok bool) {
	idx := strings.LastIndex(pkgver, "-")
	if idx <= 0 || idx == len(pkgver)-1 {
		return "", "", false
	}
	return pkgver[:idx], pkgver[idx+1:], true
}

func (p *XbpsProvider) PackageVersion(ctx context.Context, name string) (string, error) {
	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "xbps-query",
		Args:    []string{"-p", "pkgver", name},
	})
	if err != nil || result.ExitCode != 0 {
		return "", nil
	}
	_, version, ok := splitPkgver(strings.TrimSpace(result.STDOUT))
	if !ok {
		return "", nil
	}
	return version, nil
}

// CompareVersions uses xbps-uhelper version-cmp, whose exit code is the
// verdict: 0 equal, 1 first newer, 2 second newer.
func (p *XbpsProvider) CompareVersions(ctx context.Context, a, b string) (Ordering, error) {
	if !p.CommandManager.HasCommand(ctx, "xbps-uhelper") {
		slog.Warn("xbps-uhelper not found, falling back to lexical version comparison")
		return lexicalCompare(a, b), nil
	}

	result, _ := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "xbps-uhelper",
		Args:    []string{"version-cmp", a, b},
	})
	switch result.ExitCode {
	case 1:
		return Greater, nil
	case 2:
		return Less, nil
	default:
		return Equal, nil
	}
}

func (p *XbpsProvider) ShowPackageVersions(ctx context.Context, name string, w io.Writer) error {
	installed, _ := p.PackageVersion(ctx, name)
	if installed == "" {
		fmt.Fprintf(w, "Installed: (not installed)\n")
	} else {
		fmt.Fprintf(w, "Installed: %s\n", installed)
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "xbps-query",
		Args:    []string{"-R", "-p", "pkgver", name},
	})
	repoVersion := ""
	if err == nil && result.ExitCode == 0 {
		if _, version, ok := splitPkgver(strings.TrimSpace(result.STDOUT)); ok {
			repoVersion = version
		}
	}
	if repoVersion == "" {
		fmt.Fprintf(w, "Available: (not found in repositories)\n")
	} else {
		fmt.Fprintf(w, "Available: %s\n", repoVersion)
	}

	fmt.Fprintf(w, "In cache: (check /var/cache/xbps)\n")
	return nil
}

func (p *XbpsProvider) Dependencies() DependencyMap {
	return DependencyMap{
		"yq":        "sudo xbps-install -y yq",
		"timeshift": "sudo xbps-install -y timeshift",
		"snapper":   "sudo xbps-install -y snapper",
		"flatpak":   "sudo xbps-install -y flatpak",
		"xtools":    "sudo xbps-install -y xtools",
		"git":       "sudo xbps-install -y git",
	}
}

func (p *XbpsProvider) BasePackages() BasePackageSet {
	return BasePackageSet{
		Description: "Base packages for all Void machines",
		Packages: []string{
			"NetworkManager",
			"vim",
			"git",
			"yq",
			"xtools",
			"timeshift",
			"flatpak",
		},
		Src: []string{
			"heroic",
		},
	}
}

// InstallSrc builds packages with xbps-src from a void-packages checkout
// and installs the results from the local binpkg repository. Build
// failures are per-package fail-soft; a broken checkout or bootstrap is
// fatal.
func (p *XbpsProvider) InstallSrc(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}

	reporter := orDefault(p.Reporter)

	if !p.CommandManager.HasCommand(ctx, "xbps-src") {
		return &ToolMissingError{Tool: "xbps-src", InstallHint: p.Dependencies()["xtools"]}
	}

	repo := &srcrepo.RepoSync{
		CommandManager: p.CommandManager,
		Path:           p.SrcPath,
		URL:            voidPackagesURL,
		Branch:         "master",
	}
	if err := repo.Ensure(ctx); err != nil {
		return fmt.Errorf("preparing void-packages checkout: %w", err)
	}

	if err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "./xbps-src",
		Args:    []string{"bootstrap-update"},
		Dir:     p.SrcPath,
	}); err != nil {
		return fmt.Errorf("xbps-src bootstrap-update: %w", err)
	}

	var errs *multierror.Error
	var built []string
	for i, pkg := range pkgs {
		reporter.Progress(pkg, i+1, len(pkgs))
		err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
			Command: "./xbps-src",
			Args:    []string{"pkg", pkg},
			Dir:     p.SrcPath,
		})
		if err != nil {
			reporter.Warnf("Failed to build %s: %v", pkg, err)
			errs = multierror.Append(errs, fmt.Errorf("build %s: %w", pkg, err))
			continue
		}
		built = append(built, pkg)
	}

	if len(built) > 0 {
		binpkgs := filepath.Join(p.SrcPath, "host", "binpkgs")
		err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
			Command: "xbps-install",
			Args:    append([]string{"--repository=" + binpkgs, "-y"}, built...),
			Sudo:    true,
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("installing built packages: %w", err))
		}
	}

	return errs.ErrorOrNil()
}

func (p *XbpsProvider) InstallFlatpak(ctx context.Context, pkgs []string) error {
	return installFlatpaks(ctx, p.CommandManager, p.Dependencies(), p.Reporter, pkgs)
}

// Downgrade needs xdowngrade or a manual pin on Void; keep the default
// refusal but point the operator at the tool.
func (p *XbpsProvider) Downgrade(_ context.Context, pkg, version string) error {
	return &UnsupportedError{
		Provider: "xbps",
		Feature:  "downgrade",
		Hint:     fmt.Sprintf("use 'xdowngrade' or install %s-%s manually", pkg, version),
	}
}
