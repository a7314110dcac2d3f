package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceInstallEmptyMapIsNoop(t *testing.T) {
	fake := &fakeCommandManager{}
	flow := sourceInstall{
		Tool: "sometool",
		Register: func(ctx context.Context, source string) (sourceOutcome, error) {
			t.Fatal("register must not run for an empty source map")
			return sourceFailed, nil
		},
	}

	err := flow.run(context.Background(), fake, nil)
	assert.NoError(t, err)
	assert.Empty(t, fake.Calls)
}

func TestSourceInstallToolMissing(t *testing.T) {
	fake := &fakeCommandManager{Missing: map[string]bool{"sometool": true}}
	flow := sourceInstall{
		Tool:     "sometool",
		ToolHint: "install sometool",
		Register: func(ctx context.Context, source string) (sourceOutcome, error) {
			t.Fatal("register must not run when the tool is missing")
			return sourceFailed, nil
		},
	}

	err := flow.run(context.Background(), fake, map[string][]string{"a": {"x"}})

	var toolErr *ToolMissingError
	assert.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "install sometool", toolErr.InstallHint)
}

func TestSourceInstallRefreshOnlyWhenAdded(t *testing.T) {
	fake := &fakeCommandManager{}
	refreshed := 0
	var installed []string

	flow := sourceInstall{
		Tool: "sometool",
		Register: func(ctx context.Context, source string) (sourceOutcome, error) {
			return sourceAlreadyPresent, nil
		},
		Refresh: func(ctx context.Context) error {
			refreshed++
			return nil
		},
		Install: func(ctx context.Context, pkgs []string) error {
			installed = pkgs
			return nil
		},
	}

	err := flow.run(context.Background(), fake, map[string][]string{
		"a": {"x", "y"},
		"b": {"y", "z"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, refreshed, "no refresh when every source was already present")
	assert.Equal(t, []string{"x", "y", "z"}, installed)
}

func TestSourceInstallSingleRefreshForManyAdds(t *testing.T) {
	fake := &fakeCommandManager{}
	refreshed := 0
	installs := 0

	flow := sourceInstall{
		Register: func(ctx context.Context, source string) (sourceOutcome, error) {
			return sourceAdded, nil
		},
		Refresh: func(ctx context.Context) error {
			refreshed++
			return nil
		},
		Install: func(ctx context.Context, pkgs []string) error {
			installs++
			return nil
		},
	}

	err := flow.run(context.Background(), fake, map[string][]string{
		"a": {"x"},
		"b": {"y"},
		"c": {"z"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, 1, installs)
}

func TestSourceInstallRefreshFailureAbortsInstall(t *testing.T) {
	fake := &fakeCommandManager{}

	flow := sourceInstall{
		Register: func(ctx context.Context, source string) (sourceOutcome, error) {
			return sourceAdded, nil
		},
		Refresh: func(ctx context.Context) error {
			return errors.New("mirror unreachable")
		},
		Install: func(ctx context.Context, pkgs []string) error {
			t.Fatal("install must not run after a failed refresh")
			return nil
		},
	}

	err := flow.run(context.Background(), fake, map[string][]string{"a": {"x"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "refreshing repository metadata")
}

func TestSourceInstallFailedSourcePackagesExcluded(t *testing.T) {
	fake := &fakeCommandManager{}
	reporter := &recordingReporter{}
	var installed []string

	flow := sourceInstall{
		Register: func(ctx context.Context, source string) (sourceOutcome, error) {
			if source == "broken" {
				return sourceFailed, errors.New("registration rejected")
			}
			return sourceAdded, nil
		},
		Refresh: func(ctx context.Context) error { return nil },
		Install: func(ctx context.Context, pkgs []string) error {
			installed = pkgs
			return nil
		},
		Reporter: reporter,
	}

	err := flow.run(context.Background(), fake, map[string][]string{
		"broken":  {"badpkg"},
		"working": {"goodpkg"},
	})
	assert.Error(t, err)
	assert.Equal(t, []string{"goodpkg"}, installed)
	assert.Equal(t, 1, reporter.warnings)
}

func TestSourceInstallAllSourcesFailSkipsInstall(t *testing.T) {
	fake := &fakeCommandManager{}

	flow := sourceInstall{
		Register: func(ctx context.Context, source string) (sourceOutcome, error) {
			return sourceFailed, errors.New("nope")
		},
		Refresh: func(ctx context.Context) error {
			t.Fatal("nothing was added, refresh must not run")
			return nil
		},
		Install: func(ctx context.Context, pkgs []string) error {
			t.Fatal("no surviving packages, install must not run")
			return nil
		},
	}

	err := flow.run(context.Background(), fake, map[string][]string{
		"a": {"x"},
		"b": {"y"},
	})
	assert.Error(t, err)
}
