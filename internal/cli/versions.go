package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var versionsCmd = &cobra.Command{
	Use:   "versions <package>",
	Short: "Show installed, available and cached versions of a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, _ commandmanager.CommandManager, p provider.Provider) error {
			fmt.Println(headerStyle.Render(fmt.Sprintf("Versions of %s on %s", args[0], host)))
			return p.ShowPackageVersions(ctx, args[0], os.Stdout)
		})
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}
