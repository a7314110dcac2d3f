package provider

import (
	"context"
	"fmt"
	"strings"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

// Family identifies one supported distro family.
type Family string

const (
	FamilyApt    Family = "apt"
	FamilyDnf    Family = "dnf"
	FamilyPacman Family = "pacman"
	FamilyZypper Family = "zypper"
	FamilyEmerge Family = "emerge"
	FamilyXbps   Family = "xbps"
)

// New constructs the provider for a family with an optional operator
// Reporter. Selection happens once at startup; there is no per-call
// re-dispatch.
func New(family Family, runner cm.CommandManager, reporter Reporter) (Provider, error) {
	switch family {
	case FamilyApt:
		p := NewAptProvider(runner)
		p.Reporter = reporter
		return p, nil
	case FamilyDnf:
		p := NewDnfProvider(runner)
		p.Reporter = reporter
		return p, nil
	case FamilyPacman:
		p := NewPacmanProvider(runner)
		p.Reporter = reporter
		return p, nil
	case FamilyZypper:
		p := NewZypperProvider(runner)
		p.Reporter = reporter
		return p, nil
	case FamilyEmerge:
		p := NewEmergeProvider(runner)
		p.Reporter = reporter
		return p, nil
	case FamilyXbps:
		p := NewXbpsProvider(runner)
		p.Reporter = reporter
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported distro family: %s", family)
	}
}

// Detect reads /etc/os-release on the target host and constructs the
// matching provider. ID is consulted first, then ID_LIKE, so derivatives
// map onto their parent family.
func Detect(ctx context.Context, runner cm.CommandManager, reporter Reporter) (Provider, error) {
	result, err := runner.Run(ctx, cm.CommandConfig{
		Command: "cat",
		Args:    []string{"/etc/os-release"},
	})
	if err != nil {
		return nil, fmt.Errorf("reading /etc/os-release: %w", err)
	}

	fields := parseOSRelease(result.STDOUT)

	ids := strings.Fields(fields["ID"])
	ids = append(ids, strings.Fields(fields["ID_LIKE"])...)

	for _, id := range ids {
		if family, ok := familyForID(id); ok {
			return New(family, runner, reporter)
		}
	}

	return nil, fmt.Errorf("unsupported distribution: ID=%q ID_LIKE=%q", fields["ID"], fields["ID_LIKE"])
}

func familyForID(id string) (Family, bool) {
	switch id {
	case "debian", "ubuntu", "linuxmint", "pop":
		return FamilyApt, true
	case "fedora", "rhel", "centos", "rocky", "almalinux":
		return FamilyDnf, true
	case "arch", "archlinux", "manjaro", "endeavouros":
		return FamilyPacman, true
	case "opensuse", "opensuse-tumbleweed", "opensuse-leap", "suse", "sles":
		return FamilyZypper, true
	case "gentoo":
		return FamilyEmerge, true
	case "void":
		return FamilyXbps, true
	default:
		return "", false
	}
}

// parseOSRelease extracts KEY=value pairs, stripping optional quotes.
func parseOSRelease(s string) map[string]string {
	fields := make(map[string]string)
	for _, line := range nonEmptyLines(s) {
		if strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		value := strings.Trim(parts[1], `"'`)
		fields[parts[0]] = value
	}
	return fields
}
