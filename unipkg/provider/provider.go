package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
)

// Ordering is the result of comparing two version strings under one
// provider's native versioning scheme. Orderings from different providers
// are not comparable with each other.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// DependencyMap maps a logical tool name to a ready-to-run shell command
// that installs it. It backs the remediation hints shown to the operator
// when a required tool is missing.
type DependencyMap map[string]string

// BasePackageSet describes the baseline software for a fresh machine of
// one distro family, including any secondary-source extras.
type BasePackageSet struct {
	Description string
	Packages    []string
	PPA         map[string][]string
	COPR        map[string][]string
	OBS         map[string][]string
	Overlay     map[string][]string
	Flatpak     []string
	Src         []string
}

// Provider is the uniform package-operation contract. One implementation
// exists per distro family; the active one is selected once at startup.
//
// Secondary-source operations default to an Unsupported failure and are
// overridden only by the providers whose distribution has that source.
type Provider interface {
	Name() string

	Install(ctx context.Context, pkgs []string) error
	Remove(ctx context.Context, pkgs []string) error
	Update(ctx context.Context, ignore []string) error
	Search(ctx context.Context, term string) error

	InstalledPackages(ctx context.Context) (map[string]struct{}, error)
	InstalledPackagesWithVersions(ctx context.Context) (map[string]string, error)
	PackageVersion(ctx context.Context, name string) (string, error)
	CompareVersions(ctx context.Context, a, b string) (Ordering, error)
	ShowPackageVersions(ctx context.Context, name string, w io.Writer) error

	Dependencies() DependencyMap
	BasePackages() BasePackageSet

	InstallPPA(ctx context.Context, sources map[string][]string) error
	InstallCOPR(ctx context.Context, sources map[string][]string) error
	InstallOBS(ctx context.Context, sources map[string][]string) error
	InstallOverlay(ctx context.Context, sources map[string][]string) error
	InstallAUR(ctx context.Context, pkgs []string) error
	InstallSrc(ctx context.Context, pkgs []string) error
	InstallFlatpak(ctx context.Context, pkgs []string) error
	Downgrade(ctx context.Context, pkg, version string) error
}

// Reporter receives operator-facing progress text. The CLI injects a
// styled implementation; providers themselves stay presentation-free.
type Reporter interface {
	Progress(pkg string, index, total int)
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// TextReporter is the plain default used when no Reporter is injected.
type TextReporter struct {
	W io.Writer
}

func (r TextReporter) writer() io.Writer {
	if r.W == nil {
		return os.Stderr
	}
	return r.W
}

func (r TextReporter) Progress(pkg string, index, total int) {
	fmt.Fprintf(r.writer(), "--- Installing %s (%d/%d) ---\n", pkg, index, total)
}

func (r TextReporter) Infof(format string, args ...interface{}) {
	fmt.Fprintf(r.writer(), format+"\n", args...)
}

func (r TextReporter) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer(), "Warning: "+format+"\n", args...)
}

func orDefault(r Reporter) Reporter {
	if r == nil {
		return TextReporter{}
	}
	return r
}

// lexicalCompare is the low-fidelity fallback used when a provider's
// native comparison tool is unavailable.
func lexicalCompare(a, b string) Ordering {
	switch {
	case a > b:
		return Greater
	case a < b:
		return Less
	default:
		return Equal
	}
}

// dedupe returns the unique elements of pkgs in sorted order, dropping
// empty names.
func dedupe(pkgs []string) []string {
	seen := make(map[string]struct{}, len(pkgs))
	out := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// sortedKeys gives map iteration a stable order for command dispatch.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
