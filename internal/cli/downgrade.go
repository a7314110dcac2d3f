package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var downgradeCmd = &cobra.Command{
	Use:   "downgrade <package> <version>",
	Short: "Install a specific older version of a package",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, _ commandmanager.CommandManager, p provider.Provider) error {
			return p.Downgrade(ctx, args[0], args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(downgradeCmd)
}
