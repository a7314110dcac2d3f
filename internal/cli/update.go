package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/manifest"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var (
	updateIgnore       []string
	updateManifestPath string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh metadata and upgrade all packages",
	Long: `Refresh repository metadata and upgrade every installed package.
Packages named with --ignore, plus any listed under ignore_updates in a
manifest given with --manifest, are held back for this run and released
afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ignore, err := loadUpdateIgnores(updateManifestPath, updateIgnore)
		if err != nil {
			return err
		}
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, _ commandmanager.CommandManager, p provider.Provider) error {
			return p.Update(ctx, ignore)
		})
	},
}

// loadUpdateIgnores resolves the effective pin list for an update run:
// the --ignore flags merged with the manifest's ignore_updates when a
// manifest is given.
func loadUpdateIgnores(manifestPath string, flagIgnores []string) ([]string, error) {
	ignores := append([]string{}, flagIgnores...)
	if manifestPath == "" {
		return ignores, nil
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	return append(ignores, m.IgnoreUpdates...), nil
}

func init() {
	updateCmd.Flags().StringSliceVar(&updateIgnore, "ignore", nil, "Packages to hold back during this update")
	updateCmd.Flags().StringVar(&updateManifestPath, "manifest", "", "Manifest whose ignore_updates list is also held back")
	rootCmd.AddCommand(updateCmd)
}
