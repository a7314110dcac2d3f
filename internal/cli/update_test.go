package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeManifestFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	err := os.WriteFile(path, []byte(contents), 0o644)
	assert.NoError(t, err)
	return path
}

func TestLoadUpdateIgnoresFlagsOnly(t *testing.T) {
	ignores, err := loadUpdateIgnores("", []string{"kernel", "mesa"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"kernel", "mesa"}, ignores)
}

func TestLoadUpdateIgnoresMergesManifest(t *testing.T) {
	path := writeManifestFile(t, `
packages:
  - vim
ignore_updates:
  - nvidia-driver
  - kernel
`)

	ignores, err := loadUpdateIgnores(path, []string{"kernel"})
	assert.NoError(t, err)
	assert.Contains(t, ignores, "kernel")
	assert.Contains(t, ignores, "nvidia-driver")
	assert.Len(t, ignores, 3, "providers dedupe; the merge just concatenates")
}

func TestLoadUpdateIgnoresManifestOnly(t *testing.T) {
	path := writeManifestFile(t, "ignore_updates:\n  - kernel\n")

	ignores, err := loadUpdateIgnores(path, nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"kernel"}, ignores)
}

func TestLoadUpdateIgnoresMissingManifest(t *testing.T) {
	_, err := loadUpdateIgnores(filepath.Join(t.TempDir(), "nope.yaml"), []string{"kernel"})
	assert.Error(t, err)
}
