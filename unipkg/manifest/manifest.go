// Package manifest loads machine manifests: the declarative list of
// packages and secondary sources a machine should carry.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes everything to install on one machine. Secondary
// source maps go from source identifier (PPA name, COPR project, OBS
// project, overlay name) to the packages pulled from it.
type Manifest struct {
	Description string `yaml:"description"`

	Packages []string `yaml:"packages"`

	PPA     map[string][]string `yaml:"ppa"`
	COPR    map[string][]string `yaml:"copr"`
	OBS     map[string][]string `yaml:"obs"`
	Overlay map[string][]string `yaml:"overlay"`

	AUR     []string `yaml:"aur"`
	Src     []string `yaml:"src"`
	Flatpak []string `yaml:"flatpak"`

	// IgnoreUpdates lists packages pinned during bulk upgrades.
	IgnoreUpdates []string `yaml:"ignore_updates"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
