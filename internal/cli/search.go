package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search the native repositories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, _ commandmanager.CommandManager, p provider.Provider) error {
			return p.Search(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
