package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var listWithVersions bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachTarget(cmd.Context(), func(ctx context.Context, host string, _ commandmanager.CommandManager, p provider.Provider) error {
			if listWithVersions {
				versions, err := p.InstalledPackagesWithVersions(ctx)
				if err != nil {
					return err
				}
				for _, name := range sortedNames(versions) {
					fmt.Printf("%s %s\n", name, versions[name])
				}
				return nil
			}

			packages, err := p.InstalledPackages(ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(packages))
			for name := range packages {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		})
	},
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	listCmd.Flags().BoolVar(&listWithVersions, "versions", false, "Include installed versions")
	rootCmd.AddCommand(listCmd)
}
