package recall

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildGraphCmd = &cobra.Command{
	Use:   "build-graph",
	Short: "Derive relationships between all stored entities",
	Long: `Derive relationships between all stored entities: incidents are linked to
knowledge tagged as a solution, entities sharing tags are related, and
knowledge of the same domain is grouped. Existing relationships are kept.`,
	RunE: runBuildGraph,
}

func init() {
	rootCmd.AddCommand(buildGraphCmd)
	addStorageFlags(buildGraphCmd)
}

func runBuildGraph(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.client.BuildInitialGraph(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %d relationships\n", created)
	return nil
}
