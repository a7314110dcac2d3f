package cli

import (
	"context"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/manifest"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var applyCmd = &cobra.Command{
	Use:   "apply <manifest.yaml>",
	Short: "Install everything a machine manifest declares",
	Long: `Apply a machine manifest: primary packages first, then secondary
sources (PPA, COPR, OBS, overlays), AUR, source builds and Flatpaks.
Failures in one section do not stop the others.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		if m.Description != "" {
			log.Infof("Applying manifest: %s", m.Description)
		}
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, _ commandmanager.CommandManager, p provider.Provider) error {
			return applyManifest(ctx, p, m)
		})
	},
}

func applyManifest(ctx context.Context, p provider.Provider, m *manifest.Manifest) error {
	var errs *multierror.Error

	report := func(section string, err error) {
		if err != nil {
			log.Errorf("%s: %v", section, err)
			errs = multierror.Append(errs, err)
		}
	}

	if len(m.Packages) > 0 {
		report("packages", p.Install(ctx, m.Packages))
	}
	if len(m.PPA) > 0 {
		report("ppa", p.InstallPPA(ctx, m.PPA))
	}
	if len(m.COPR) > 0 {
		report("copr", p.InstallCOPR(ctx, m.COPR))
	}
	if len(m.OBS) > 0 {
		report("obs", p.InstallOBS(ctx, m.OBS))
	}
	if len(m.Overlay) > 0 {
		report("overlay", p.InstallOverlay(ctx, m.Overlay))
	}
	if len(m.AUR) > 0 {
		report("aur", p.InstallAUR(ctx, m.AUR))
	}
	if len(m.Src) > 0 {
		report("src", p.InstallSrc(ctx, m.Src))
	}
	if len(m.Flatpak) > 0 {
		report("flatpak", p.InstallFlatpak(ctx, m.Flatpak))
	}

	return errs.ErrorOrNil()
}

func init() {
	rootCmd.AddCommand(applyCmd)
}
