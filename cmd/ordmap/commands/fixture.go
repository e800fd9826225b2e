package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordmap/internal/config"
	"github.com/Sumatoshi-tech/ordmap/internal/observability"
	"github.com/Sumatoshi-tech/ordmap/internal/render"
	"github.com/Sumatoshi-tech/ordmap/internal/script"
	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

// fixtureRemoval is the key removed after the fixture inserts.
const fixtureRemoval = 20

func newFixtureCommand(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Replay the built-in twelve-key fixture",
		Long: `Insert 10 3 1 5 20 25 30 40 8 9 50 60, print the tree, remove 20 and
print it again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.setup(cmd, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer e.close()

			if !cmd.Flags().Changed("format") {
				format = e.cfg.Render.Format
			}

			return runFixture(cmd, e, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", config.FormatTable, "Tree format: table, plain, sketch (default from config)")

	return cmd
}

func runFixture(cmd *cobra.Command, e *env, format string) error {
	out := cmd.OutOrStdout()
	tree := rbtree.New[int64, string]()
	runner := script.NewRunner(tree,
		script.WithLogger(e.providers.Logger),
		script.WithTracer(e.providers.Tracer),
		script.WithMetrics(e.metrics),
	)

	_, err := runner.Run(cmd.Context(), script.Fixture())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "after %d inserts:\n", tree.Len())

	err = render.Tree(out, tree, format, e.painter)
	if err != nil {
		return err
	}

	key := int64(fixtureRemoval)

	_, err = runner.Run(cmd.Context(), &script.Script{
		Name: "fixture removal",
		Ops:  []script.Op{{Op: script.OpRemove, Key: &key, Expect: script.ExpectFound}},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nafter removing %d:\n", fixtureRemoval)

	err = render.Tree(out, tree, format, e.painter)
	if err != nil {
		return err
	}

	return reportInvariants(out, tree, e.painter)
}
