package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newDnfTest(fake *fakeCommandManager) *DnfProvider {
	p := NewDnfProvider(fake)
	p.Reporter = &recordingReporter{}
	return p
}

func TestDnfUpdateFailedRefreshIsReported(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"dnf makecache --refresh": {exit: 1, err: errors.New("exit status 1")},
		},
	}
	p := newDnfTest(fake)

	// The upgrade still runs, but the failed refresh must surface in the
	// returned error rather than exiting clean.
	err := p.Update(context.Background(), []string{"kernel", "kernel"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "refreshing metadata")

	assert.Equal(t, []string{
		"dnf makecache --refresh",
		"dnf upgrade -y --exclude=kernel",
	}, fake.commandLines())
}

func TestDnfCompareVersions(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"rpmdev-vercmp 2.0 1.0": {exit: 11, err: errors.New("exit status 11")},
			"rpmdev-vercmp 1.0 2.0": {exit: 12, err: errors.New("exit status 12")},
			"rpmdev-vercmp 1.0 1.0": {exit: 0},
		},
	}
	p := newDnfTest(fake)
	ctx := context.Background()

	got, err := p.CompareVersions(ctx, "2.0", "1.0")
	assert.NoError(t, err)
	assert.Equal(t, Greater, got)

	got, err = p.CompareVersions(ctx, "1.0", "2.0")
	assert.NoError(t, err)
	assert.Equal(t, Less, got)

	got, err = p.CompareVersions(ctx, "1.0", "1.0")
	assert.NoError(t, err)
	assert.Equal(t, Equal, got)
}

func TestDnfCompareVersionsUnexpectedExit(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"rpmdev-vercmp 1.0 2.0": {exit: 7, err: errors.New("exit status 7")},
		},
	}
	p := newDnfTest(fake)

	_, err := p.CompareVersions(context.Background(), "1.0", "2.0")
	assert.Error(t, err)
}

func TestDnfInstallCOPRSkipsEnabledProject(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"dnf copr list --enabled": {stdout: "copr.fedorainfracloud.org/atim/lazygit\n"},
		},
	}
	p := newDnfTest(fake)

	err := p.InstallCOPR(context.Background(), map[string][]string{
		"atim/lazygit": {"lazygit"},
	})
	assert.NoError(t, err)

	lines := fake.commandLines()
	assert.NotContains(t, lines, "dnf copr enable -y atim/lazygit")
	assert.NotContains(t, lines, "dnf makecache --refresh", "no refresh when nothing was added")
	assert.Contains(t, lines, "dnf install -y lazygit")
}

func TestDnfInstallCOPREnablesAndRefreshes(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"dnf copr list --enabled": {stdout: ""},
		},
	}
	p := newDnfTest(fake)

	err := p.InstallCOPR(context.Background(), map[string][]string{
		"atim/lazygit": {"lazygit"},
	})
	assert.NoError(t, err)

	assert.Equal(t, []string{
		"dnf copr list --enabled",
		"dnf copr enable -y atim/lazygit",
		"dnf makecache --refresh",
		"dnf install -y lazygit",
	}, fake.commandLines())
}

func TestDnfInstalledPackagesToolMissing(t *testing.T) {
	fake := &fakeCommandManager{Missing: map[string]bool{"rpm": true}}
	p := newDnfTest(fake)

	packages, err := p.InstalledPackages(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, packages)

	versions, err := p.InstalledPackagesWithVersions(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, versions)

	assert.Empty(t, fake.Calls)
}

func TestDnfDowngrade(t *testing.T) {
	fake := &fakeCommandManager{}
	p := newDnfTest(fake)

	err := p.Downgrade(context.Background(), "kernel", "6.8.9")
	assert.NoError(t, err)
	assert.Equal(t, []string{"dnf downgrade -y kernel-6.8.9"}, fake.commandLines())
}

func TestDnfUnsupportedPPAMakesNoCalls(t *testing.T) {
	fake := &fakeCommandManager{}
	p := newDnfTest(fake)

	err := p.InstallPPA(context.Background(), map[string][]string{"a/b": {"x"}})

	var unsupported *UnsupportedError
	assert.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "dnf", unsupported.Provider)
	assert.Empty(t, fake.Calls)
}
