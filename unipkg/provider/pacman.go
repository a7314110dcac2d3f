package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

// PacmanProvider implements the provider contract for Arch Linux.
type PacmanProvider struct {
	CommandManager cm.CommandManager
	Reporter       Reporter
	unsupportedCapabilities
}

func NewPacmanProvider(runner cm.CommandManager) *PacmanProvider {
	return &PacmanProvider{
		CommandManager:          runner,
		unsupportedCapabilities: unsupportedCapabilities{providerName: "pacman"},
	}
}

var _ Provider = (*PacmanProvider)(nil)

// AUR helpers run unprivileged and escalate internally when needed.
var aurHelpers = []string{"paru", "yay"}

func (p *PacmanProvider) Name() string { return "pacman" }

func (p *PacmanProvider) Install(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "pacman",
		Args:    append([]string{"-S", "--noconfirm", "--needed"}, pkgs...),
		Sudo:    true,
	})
}

func (p *PacmanProvider) Remove(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "pacman",
		Args:    append([]string{"-Rns", "--noconfirm"}, pkgs...),
		Sudo:    true,
	})
}

// Update runs a single -Syu so the sync and upgrade cannot drift apart;
// the ignore set is passed as --ignore flags, leaving no hold state.
func (p *PacmanProvider) Update(ctx context.Context, ignore []string) error {
	args := []string{"-Syu", "--noconfirm"}
	ignore = dedupe(ignore)
	if len(ignore) > 0 {
		orDefault(p.Reporter).Warnf("Ignoring %d packages: %s", len(ignore), strings.Join(ignore, ", "))
		args = append(args, "--ignore", strings.Join(ignore, ","))
	}
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "pacman",
		Args:    args,
		Sudo:    true,
	})
}

func (p *PacmanProvider) Search(ctx context.Context, term string) error {
	return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
		Command: "pacman",
		Args:    []string{"-Ss", term},
	})
}

func (p *PacmanProvider) InstalledPackages(ctx context.Context) (map[string]struct{}, error) {
	packages := make(map[string]struct{})
	if !p.CommandManager.HasCommand(ctx, "pacman") {
		return packages, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "pacman",
		Args:    []string{"-Qq"},
	})
	if err != nil {
		return nil, fmt.Errorf("querying installed packages: %w", err)
	}

	for _, line := range nonEmptyLines(result.STDOUT) {
		packages[line] = struct{}{}
	}
	return packages, nil
}

func (p *PacmanProvider) InstalledPackagesWithVersions(ctx context.Context) (map[string]string, error) {
	versions := make(map[string]string)
	if !p.CommandManager.HasCommand(ctx, "pacman") {
		return versions, nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "pacman",
		Args:    []string{"-Q"},
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

func (p *PacmanProvider) PackageVersion(ctx context.Context, name string) (string, error) {
	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "pacman",
		Args:    []string{"-Q", name},
	})
	if err != nil || result.ExitCode != 0 {
		return "", nil
	}
	fields := strings.Fields(result.STDOUT)
	if len(fields) != 2 {
		return "", nil
	}
	return fields[1], nil
}

// CompareVersions uses vercmp, which prints a negative, zero or positive
// integer on stdout.
func (p *PacmanProvider) CompareVersions(ctx context.Context, a, b string) (Ordering, error) {
	if !p.CommandManager.HasCommand(ctx, "vercmp") {
		slog.Warn("vercmp not found, falling back to lexical version comparison")
		return lexicalCompare(a, b), nil
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "vercmp",
		Args:    []string{a, b},
	})
	if err != nil {
		return Equal, fmt.Errorf("vercmp: %w", err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(result.STDOUT))
	if err != nil {
		return Equal, fmt.Errorf("vercmp: unexpected output %q", result.STDOUT)
	}
	switch {
	case n > 0:
		return Greater, nil
	case n < 0:
		return Less, nil
	default:
		return Equal, nil
	}
}

func (p *PacmanProvider) ShowPackageVersions(ctx context.Context, name string, w io.Writer) error {
	installed, _ := p.PackageVersion(ctx, name)
	if installed == "" {
		fmt.Fprintf(w, "Installed: (not installed)\n")
	} else {
		fmt.Fprintf(w, "Installed: %s\n", installed)
	}

	result, err := runCaptured(ctx, p.CommandManager, cm.CommandConfig{
		Command: "pacman",
		Args:    []string{"-Si", name},
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

	fmt.Fprintf(w, "In cache: (check /var/cache/pacman/pkg)\n")
	return nil
}

func (p *PacmanProvider) Dependencies() DependencyMap {
	return DependencyMap{
		"yq":        "sudo pacman -S --noconfirm yq",
		"timeshift": "sudo pacman -S --noconfirm timeshift",
		"flatpak":   "sudo pacman -S --noconfirm flatpak",
		"aur":       "install an AUR helper such as paru or yay first",
	}
}

func (p *PacmanProvider) BasePackages() BasePackageSet {
	return BasePackageSet{
		Description: "Base packages for all Arch machines",
		Packages: []string{
			"base-devel",
			"networkmanager",
			"vim",
			"git",
			"yq",
		},
	}
}

// InstallAUR builds through whichever AUR helper is present. The helper
// must not run under sudo; it escalates itself for the install step.
func (p *PacmanProvider) InstallAUR(ctx context.Context, pkgs []string) error {
	pkgs = dedupe(pkgs)
	if len(pkgs) == 0 {
		return nil
	}

	for _, helper := range aurHelpers {
		if !p.CommandManager.HasCommand(ctx, helper) {
			continue
		}
		return runInteractive(ctx, p.CommandManager, cm.CommandConfig{
			Command: helper,
			Args:    append([]string{"-S", "--noconfirm"}, pkgs...),
		})
	}

	return &ToolMissingError{Tool: "paru/yay", InstallHint: p.Dependencies()["aur"]}
}

func (p *PacmanProvider) InstallFlatpak(ctx context.Context, pkgs []string) error {
	return installFlatpaks(ctx, p.CommandManager, p.Dependencies(), p.Reporter, pkgs)
}
