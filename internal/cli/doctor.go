package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the tools unipkg relies on are installed",
	Long: `Check for each external tool the active provider depends on and
print the ready-to-run install command for any that are missing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, runner commandmanager.CommandManager, p provider.Provider) error {
			fmt.Println(headerStyle.Render(fmt.Sprintf("Dependencies on %s (%s provider)", host, p.Name())))

			deps := p.Dependencies()
			tools := make([]string, 0, len(deps))
			for tool := range deps {
				tools = append(tools, tool)
			}
			sort.Strings(tools)

			missing := 0
			for _, tool := range tools {
				if runner.HasCommand(ctx, tool) {
					fmt.Printf("%s %s\n", okStyle.Render("ok"), tool)
					continue
				}
				missing++
				fmt.Printf("%s %s\n", errorStyle.Render("missing"), tool)
				fmt.Printf("        install it with: %s\n", deps[tool])
			}

			if missing > 0 {
				return fmt.Errorf("%d missing tools on %s", missing, host)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
