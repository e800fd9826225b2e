package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordmap/internal/config"
	"github.com/Sumatoshi-tech/ordmap/internal/observability"
	"github.com/Sumatoshi-tech/ordmap/internal/render"
	"github.com/Sumatoshi-tech/ordmap/internal/script"
	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

type runCommand struct {
	g      *globals
	format string
}

func newRunCommand(g *globals) *cobra.Command {
	rc := &runCommand{g: g}

	cmd := &cobra.Command{
		Use:   "run <script.yaml|->",
		Short: "Replay a YAML operation script",
		Long: `Validate a script against the script schema, apply its operations to an
empty tree, print one line per operation and render the final tree.

Examples:
  ordmap run ops.yaml
  ordmap run --format sketch - < ops.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.format, "format", "f", config.FormatTable, "Tree format: table, plain, sketch (default from config)")

	return cmd
}

func (rc *runCommand) run(cmd *cobra.Command, args []string) error {
	data, _, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	parsed, err := script.Parse(data)
	if err != nil {
		return err
	}

	e, err := rc.g.setup(cmd, observability.ModeCLI, false)
	if err != nil {
		return err
	}
	defer e.close()

	format := e.cfg.Render.Format
	if cmd.Flags().Changed("format") {
		format = rc.format
	}

	out := cmd.OutOrStdout()
	tree := rbtree.New[int64, string]()
	runner := script.NewRunner(tree,
		script.WithLogger(e.providers.Logger),
		script.WithTracer(e.providers.Tracer),
		script.WithMetrics(e.metrics),
		script.WithOutput(out),
	)

	results, runErr := runner.Run(cmd.Context(), parsed)

	for _, res := range results {
		fmt.Fprintln(out, formatResult(res, e.painter))
	}

	err = render.Tree(out, tree, format, e.painter)
	if err != nil {
		return err
	}

	err = reportInvariants(out, tree, e.painter)
	if err != nil {
		return err
	}

	return runErr
}

func formatResult(res script.Result, painter render.Painter) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "#%-3d %-6s", res.Index, res.Op)

	if res.Key != nil {
		sb.WriteString(" " + strconv.FormatInt(*res.Key, 10))
	}

	if res.Op == script.OpCeil && res.Outcome == observability.OutcomeOK {
		sb.WriteString(" -> " + strconv.FormatInt(res.FoundKey, 10))
	}

	if res.Value != "" {
		sb.WriteString(" = " + strconv.Quote(res.Value))
	}

	switch res.Outcome {
	case observability.OutcomeOK:
		sb.WriteString(" " + painter.Good(res.Outcome))
	case observability.OutcomeError:
		sb.WriteString(" " + painter.Bad(res.Outcome+": "+res.Err.Error()))
	default:
		sb.WriteString(" " + res.Outcome)
	}

	return sb.String()
}

// reportInvariants prints the invariant check result and turns a violation
// into an error.
func reportInvariants[K, V any](out io.Writer, tree *rbtree.Tree[K, V], painter render.Painter) error {
	err := tree.Validate()
	if err != nil {
		fmt.Fprintln(out, painter.Bad("invariants violated: "+err.Error()))

		return &ExitError{Err: fmt.Errorf("%w: %w", ErrInvariantViolation, err), Code: ExitFailure}
	}

	fmt.Fprintf(out, "%s (%d nodes, height %d, black height %d)\n",
		painter.Good("invariants hold"), tree.Len(), tree.Height(), tree.BlackHeight())

	return nil
}
