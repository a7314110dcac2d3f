package provider

import (
	"context"
	"fmt"
	"strings"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

const flathubRepo = "https://flathub.org/repo/flathub.flatpakrepo"

// installFlatpaks is the shared Flatpak capability. It is not tied to a
// distro family: every provider delegates here, contributing only the
// remediation hint for a missing flatpak binary.
func installFlatpaks(ctx context.Context, runner cm.CommandManager, deps DependencyMap, reporter Reporter, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}

	reporter = orDefault(reporter)

	if !runner.HasCommand(ctx, "flatpak") {
		hint := deps["flatpak"]
		if hint == "" {
			hint = "sudo <your-package-manager> install flatpak"
		}
		return &ToolMissingError{Tool: "flatpak", InstallHint: hint}
	}

	remotes, err := runCaptured(ctx, runner, cm.CommandConfig{
		Command: "flatpak",
		Args:    []string{"remotes", "--columns=name"},
	})
	if err != nil {
		return fmt.Errorf("checking flatpak remotes: %w", err)
	}

	if !strings.Contains(remotes.STDOUT, "flathub") {
		reporter.Warnf("'flathub' remote not found. Adding it now...")
		err := runInteractive(ctx, runner, cm.CommandConfig{
			Command: "flatpak",
			Args:    []string{"remote-add", "--if-not-exists", "flathub", flathubRepo},
			Sudo:    true,
		})
		if err != nil {
			return fmt.Errorf("adding flathub remote: %w", err)
		}
	}

	args := append([]string{"install", "-y", "--noninteractive", "flathub"}, dedupe(pkgs)...)
	return runInteractive(ctx, runner, cm.CommandConfig{
		Command: "flatpak",
		Args:    args,
		Sudo:    true,
	})
}
