package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var removeCmd = &cobra.Command{
	Use:   "remove <package>...",
	Short: "Remove packages with the native package manager",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, _ commandmanager.CommandManager, p provider.Provider) error {
			return p.Remove(ctx, args)
		})
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
