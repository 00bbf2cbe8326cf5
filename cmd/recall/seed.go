package recall

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/recall/pkg/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load entities and relationships from a YAML fixture file",
	Long: `Load entities and relationships from a YAML fixture file.

Entities may carry a local ref that relationships use in place of the
generated id. Every item is attempted; failures are reported together at
the end. With --build-graph, relationships are then derived between all
stored entities.`,
	RunE: runSeed,
}

var (
	seedFile       string
	seedBuildGraph bool
)

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Fixture file (YAML)")
	seedCmd.Flags().BoolVar(&seedBuildGraph, "build-graph", false, "Derive relationships after seeding")
	seedCmd.MarkFlagRequired("file")

	addStorageFlags(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, seedErr := seed.NewSeeder(a.client, a.client, a.logger).ApplyFile(ctx, seedFile)
	if res != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d entities and %d relationships from %s\n", res.Entities, res.Relationships, seedFile)
	}
	if seedErr != nil {
		return fmt.Errorf("seeding finished with errors: %w", seedErr)
	}

	if seedBuildGraph {
		created, err := a.client.BuildInitialGraph(ctx)
		if err != nil {
			return fmt.Errorf("failed to build graph: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Derived %d relationships\n", created)
	}
	return nil
}
