package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var installCmd = &cobra.Command{
	Use:   "install <package>...",
	Short: "Install packages with the native package manager",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, _ commandmanager.CommandManager, p provider.Provider) error {
			return p.Install(ctx, args)
		})
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
