package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstallFlatpaksEmptyIsNoop(t *testing.T) {
	fake := &fakeCommandManager{Missing: map[string]bool{"flatpak": true}}

	err := installFlatpaks(context.Background(), fake, nil, nil, nil)
	assert.NoError(t, err)
	assert.Empty(t, fake.Calls)
}

func TestInstallFlatpaksToolMissingUsesProviderHint(t *testing.T) {
	fake := &fakeCommandManager{Missing: map[string]bool{"flatpak": true}}
	deps := DependencyMap{"flatpak": "sudo apt install flatpak"}

	err := installFlatpaks(context.Background(), fake, deps, nil, []string{"org.gimp.GIMP"})

	var toolErr *ToolMissingError
	assert.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "flatpak", toolErr.Tool)
	assert.Equal(t, "sudo apt install flatpak", toolErr.InstallHint)
	assert.Empty(t, fake.Calls)
}

func TestInstallFlatpaksRemotePresent(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"flatpak remotes --columns=name": {stdout: "flathub\n"},
		},
	}

	err := installFlatpaks(context.Background(), fake, nil, nil, []string{"org.gimp.GIMP", "org.gimp.GIMP"})
	assert.NoError(t, err)

	assert.Equal(t, []string{
		"flatpak remotes --columns=name",
		"flatpak install -y --noninteractive flathub org.gimp.GIMP",
	}, fake.commandLines())
}

func TestInstallFlatpaksAddsMissingRemote(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"flatpak remotes --columns=name": {stdout: ""},
		},
	}
	reporter := &recordingReporter{}

	err := installFlatpaks(context.Background(), fake, nil, reporter, []string{"com.spotify.Client"})
	assert.NoError(t, err)

	lines := fake.commandLines()
	assert.Contains(t, lines, "flatpak remote-add --if-not-exists flathub "+flathubRepo)
	assert.Equal(t, 1, reporter.warnings)
}

func TestInstallFlatpaksRemoteAddFailureIsFatal(t *testing.T) {
	fake := &fakeCommandManager{
		Responses: map[string]fakeResponse{
			"flatpak remotes --columns=name": {stdout: ""},
			"flatpak remote-add --if-not-exists flathub " + flathubRepo: {
				exit: 1, err: errors.New("exit status 1"),
			},
		},
	}

	err := installFlatpaks(context.Background(), fake, nil, nil, []string{"com.spotify.Client"})
	assert.Error(t, err)

	for _, line := range fake.commandLines() {
		assert.NotContains(t, line, "install -y", "install must not run when the remote cannot be added")
	}
}
