package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newZypperTest(fake *fakeCommandManager) *ZypperProvider {
	p := NewZypperProvider(fake)
	p.Reporter = &recordingReporter{}
	return p
}

func TestZypperUpdateRemovesLocksAfterFailedUpgrade(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"zypper dup --non-interactive": {exit: 1, err: errors.New("exit status 1")},
		},
	}
	p := newZypperTest(fake)

	err := p.Update(context.Background(), []string{"kernel-default"})
	assert.Error(t, err)

	assert.Equal(t, []string{
		"zypper addlock kernel-default",
		"zypper refresh",
		"zypper dup --non-interactive",
		"zypper removelock kernel-default",
	}, fake.commandLines())
}

func TestZypperUpdateFailedLockNotReleased(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"zypper addlock broken": {exit: 1, err: errors.New("exit status 1")},
		},
	}
	p := newZypperTest(fake)

	err := p.Update(context.Background(), []string{"broken", "kernel-default"})
	assert.Error(t, err)

	lines := fake.commandLines()
	assert.Contains(t, lines, "zypper removelock kernel-default")
	assert.NotContains(t, lines, "zypper removelock broken")
}

func TestZypperCompareVersions(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"zypper versioncmp 2.0 1.0": {stdout: "2.0 is newer than 1.0\n"},
			"zypper versioncmp 1.0 2.0": {stdout: "1.0 is older than 2.0\n"},
			"zypper versioncmp 1.0 1.0": {stdout: "1.0 matches 1.0\n"},
		},
	}
	p := newZypperTest(fake)
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

func TestObsAlias(t *testing.T) {
	assert.Equal(t, "obs-hardware-sdr", obsAlias("hardware:sdr"))
	assert.Equal(t, "obs-home-user-tools", obsAlias("home:user/tools"))
}

func TestZypperInstallOBSSkipsExistingRepo(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"zypper lr": {stdout: "1 | obs-hardware-sdr | OBS hardware:sdr | Yes\n"},
		},
	}
	p := newZypperTest(fake)

	err := p.InstallOBS(context.Background(), map[string][]string{
		"hardware:sdr": {"gqrx"},
	})
	assert.NoError(t, err)

	lines := fake.commandLines()
	assert.NotContains(t, lines, "zypper addrepo -f obs://hardware:sdr obs-hardware-sdr")
	assert.Contains(t, lines, "zypper install --non-interactive gqrx")
}

func TestZypperInstallOBSAddsAndRefreshes(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"zypper lr": {stdout: ""},
		},
	}
	p := newZypperTest(fake)

	err := p.InstallOBS(context.Background(), map[string][]string{
		"hardware:sdr": {"gqrx"},
	})
	assert.NoError(t, err)

	assert.Equal(t, []string{
		"zypper lr",
		"zypper addrepo -f obs://hardware:sdr obs-hardware-sdr",
		"zypper --gpg-auto-import-keys refresh",
		"zypper install --non-interactive gqrx",
	}, fake.commandLines())
}

func TestZypperDowngrade(t *testing.T) {
	fake := &fakeCommandManager{}
	p := newZypperTest(fake)

	err := p.Downgrade(context.Background(), "vim", "9.0.1378")
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"zypper install --non-interactive --oldpackage vim=9.0.1378",
	}, fake.commandLines())
}
