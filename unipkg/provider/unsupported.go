package provider

import "context"

// unsupportedCapabilities supplies the default-failing secondary-source
// operations. Each provider embeds it and overrides only the sources its
// distribution actually has. The defaults never invoke an external tool.
type unsupportedCapabilities struct {
	providerName string
}

func (u unsupportedCapabilities) unsupported(feature string) error {
	name := u.providerName
	if name == "" {
		name = "active"
	}
	return &UnsupportedError{Provider: name, Feature: feature}
}

func (u unsupportedCapabilities) InstallPPA(_ context.Context, _ map[string][]string) error {
	return u.unsupported("PPA")
}

func (u unsupportedCapabilities) InstallCOPR(_ context.Context, _ map[string][]string) error {
	return u.unsupported("COPR")
}

func (u unsupportedCapabilities) InstallOBS(_ context.Context, _ map[string][]string) error {
	return u.unsupported("OBS")
}

func (u unsupportedCapabilities) InstallOverlay(_ context.Context, _ map[string][]string) error {
	return u.unsupported("overlay")
}

func (u unsupportedCapabilities) InstallAUR(_ context.Context, _ []string) error {
	return u.unsupported("AUR")
}

func (u unsupportedCapabilities) InstallSrc(_ context.Context, _ []string) error {
	return u.unsupported("source-build")
}

func (u unsupportedCapabilities) Downgrade(_ context.Context, pkg, _ string) error {
	name := u.providerName
	if name == "" {
		name = "active"
	}
	return &UnsupportedError{
		Provider: name,
		Feature:  "downgrade",
		Hint:     "package " + pkg + " left unchanged",
	}
}
