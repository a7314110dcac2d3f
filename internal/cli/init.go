package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/manifest"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var (
	initWithFlatpak bool
	initWithSrc     bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Install the provider's baseline packages on a fresh machine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, _ commandmanager.CommandManager, p provider.Provider) error {
			base := p.BasePackages()
			log.Infof("%s", base.Description)

			m := &manifest.Manifest{
				Packages: base.Packages,
				PPA:      base.PPA,
				COPR:     base.COPR,
				OBS:      base.OBS,
				Overlay:  base.Overlay,
			}
			if initWithFlatpak {
				m.Flatpak = base.Flatpak
			}
			if initWithSrc {
				m.Src = base.Src
			}
			return applyManifest(ctx, p, m)
		})
	},
}

func init() {
	initCmd.Flags().BoolVar(&initWithFlatpak, "with-flatpak", false, "Also install the baseline Flatpaks")
	initCmd.Flags().BoolVar(&initWithSrc, "with-src", false, "Also build the baseline source packages")
	rootCmd.AddCommand(initCmd)
}
