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

// ZypperProvider implements the provider contract for openSUSE.
type ZypperProvider struct {
	CommandManager cm.CommandManager
	Reporter       Reporter
	unsupportedCapabilities
}

func NewZypperProvider(runner cm.CommandManager) *ZypperProvider {
	return &ZypperProvider{
		CommandManager:          runner,
		unsupportedCapabilities: unsupportedCapabilities{providerName: "zypper"},
	}
}

var _ Provider = (*ZypperProvider)(nil)

func (p *ZypperProvider) Name() string { return "zypper" }

func (p *ZypperProvider) Install(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    append([]string{"install", "--non-interactive"}, pkgs...),
		Sudo:    true,
	})
}

func (p *ZypperProvider) Remove(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    append([]string{"remove", "--non-interactive"}, pkgs...),
		Sudo:    true,
	})
}

// Update locks the ignore set, refreshes, runs a dist-upgrade (dup is
// the safe choice for Tumbleweed and works on Leap), then removes the
// locks even when the upgrade failed.
func (p *ZypperProvider) Update(ctx context.Context, ignore []string) error {
	ignore = dedupe(ignore)

	var errs *multierror.Error
	var locked []string
	for _, pkg := range ignore {
		_, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
			Command: "zypper",
			Args:    []string{"addlock", pkg},
			Sudo:    true,
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("locking %s: %w", pkg, err))
			continue
		}
		locked = append(locked, pkg)
	}

	if err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    []string{"refresh"},
		Sudo:    true,
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("refreshing metadata: %w", err))
	}

	if err := runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    []string{"dup", "--non-interactive"},
		Sudo:    true,
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("upgrade: %w", err))
	}

	for _, pkg := range locked {
		_, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
			Command: "zypper",
			Args:    []string{"removelock", pkg},
			Sudo:    true,
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("unlocking %s: %w", pkg, err))
		}
	}

	return errs.ErrorOrNil()
}

func (p *ZypperProvider) Search(ctx context.Context, term string) error {
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    []string{"search", term},
	})
}

func (p *ZypperProvider) InstalledPackages(ctx context.Context) (map[string]struct{}, error) {
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

func (p *ZypperProvider) InstalledPackagesWithVersions(ctx context.Context) (map[string]string, error) {
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

func (p *ZypperProvider) PackageVersion(ctx context.Context, name string) (string, error) {
	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "rpm",
		Args:    []string{"-q", "--qf", "%{VERSION}", name},
	})
	if err != nil || result.ExitCode != 0 {
		return "", nil
	}
	return strings.TrimSpace(result.STDOUT), nil
}

// CompareVersions parses the verdict zypper versioncmp prints, e.g.
// "1.2 is newer than 1.1".
func (p *ZypperProvider) CompareVersions(ctx context.Context, a, b string) (Ordering, error) {
	if !p.CommandManager.HasCommand(ctx, "zypper") {
		slog.Warn("zypper not found, falling back to lexical version comparison")
		return lexicalCompare(a, b), nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    []string{"versioncmp", a, b},
	})
	if err != nil {
		return Equal, fmt.Errorf("zypper versioncmp: %w", err)
	}

	switch {
	case strings.Contains(result.STDOUT, "newer"):
		return Greater, nil
	case strings.Contains(result.STDOUT, "older"):
		return Less, nil
	default:
		return Equal, nil
	}
}

func (p *ZypperProvider) ShowPackageVersions(ctx context.Context, name string, w io.Writer) error {
	installed, _ := p.PackageVersion(ctx, name)
	if installed == "" {
		fmt.Fprintf(w, "Installed: (not installed)\n")
	} else {
		fmt.Fprintf(w, "Installed: %s\n", installed)
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    []string{"--non-interactive", "info", name},
	})
	repoVersion := ""
	if err == nil && result.ExitCode == 0 {
		for _, line := range nonEmptyLines(result.STDOUT) {
			if strings.HasPrefix(line, "Version") {
				parts := strings.SplitN(line, ":", 2)
				if len(parts) == 2 {
					repoVersion = strings.TrimSpace(parts[1])
				}
				break
			}
		}
	}
	if repoVersion == "" {
		fmt.Fprintf(w, "Available: (not found in repositories)\n")
	} else {
		fmt.Fprintf(w, "Available: %s\n", repoVersion)
	}

	fmt.Fprintf(w, "In cache: (check /var/cache/zypp/packages)\n")
	return nil
}

func (p *ZypperProvider) Dependencies() DependencyMap {
	return DependencyMap{
		"yq":        "sudo zypper install --non-interactive yq",
		"timeshift": "sudo zypper install --non-interactive timeshift",
		"flatpak":   "sudo zypper install --non-interactive flatpak",
	}
}

func (p *ZypperProvider) BasePackages() BasePackageSet {
	return BasePackageSet{
		Description: "Base packages for all openSUSE machines",
		Packages: []string{
			"patterns-base-base",
			"kernel-default",
			"NetworkManager",
			"vim",
			"git",
			"yq",
		},
	}
}

// InstallOBS adds each OBS repository, refreshes metadata once if any
// repository was newly added, then installs the merged package set.
func (p *ZypperProvider) InstallOBS(ctx context.Context, sources map[string][]string) error {
	flow := sourceInstall{
		Tool:     "zypper",
		ToolHint: "",
		Register: p.addOBSRepo,
		Refresh: func(ctx context.Context) error {
			return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
				Command: "zypper",
				Args:    []string{"--gpg-auto-import-keys", "refresh"},
				Sudo:    true,
			})
		},
		Install:  p.Install,
		Reporter: p.Reporter,
	}
	return flow.run(ctx, p.CommandManager, sources)
}

func (p *ZypperProvider) addOBSRepo(ctx context.Context, source string) (sourceOutcome, error) {
	alias := obsAlias(source)

	repos, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    []string{"lr"},
	})
	if err == nil && strings.Contains(repos.STDOUT, alias) {
		return sourceAlreadyPresent, nil
	}

	_, err = runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    []string{"addrepo", "-f", "obs://" + source, alias},
		Sudo:    true,
	})
	if err != nil {
		return sourceFailed, err
	}
	return sourceAdded, nil
}

// obsAlias derives a repo alias from an OBS project path like
// "hardware:sdr".
func obsAlias(source string) string {
	return "obs-" + strings.NewReplacer(":", "-", "/", "-").Replace(source)
}

func (p *ZypperProvider) InstallFlatpak(ctx context.Context, pkgs []string) error {
	return installFlatpaks(ctx, p.CommandManager, p.Dependencies(), p.Reporter, pkgs)
}

func (p *ZypperProvider) Downgrade(ctx context.Context, pkg, version string) error {
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "zypper",
		Args:    []string{"install", "--non-interactive", "--oldpackage", pkg + "=" + version},
		Sudo:    true,
	})
}
