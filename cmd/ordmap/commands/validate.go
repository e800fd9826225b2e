package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordmap/internal/config"
	"github.com/Sumatoshi-tech/ordmap/internal/render"
	"github.com/Sumatoshi-tech/ordmap/internal/script"
)

func newValidateCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <script.yaml|->",
		Short: "Check a script against the script schema",
		Long: `Validate an operation script without running it. Exits with status 2
when the script does not conform.

Examples:
  ordmap validate ops.yaml
  ordmap validate - < ops.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, g, args[0])
		},
	}
}

func runValidate(cmd *cobra.Command, g *globals, path string) error {
	data, label, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	painter := render.NewPainter(!g.noColor && render.ColorEnabled(config.ColorAuto))
	out := cmd.OutOrStdout()

	issues, err := script.Validate(data)
	if err != nil {
		fmt.Fprintln(out, painter.Bad(fmt.Sprintf("Script %s is not readable: %v", label, err)))

		return &ExitError{Err: err, Code: ExitValidationFailure}
	}

	if len(issues) == 0 {
		fmt.Fprintln(out, painter.Good(fmt.Sprintf("Script %s is valid", label)))

		return nil
	}

	fmt.Fprintln(out, painter.Bad(fmt.Sprintf("Script %s is invalid (%d issues)", label, len(issues))))

	for _, issue := range issues {
		fmt.Fprintln(out, painter.Bad("  - "+issue.String()))
	}

	return &ExitError{
		Err:  fmt.Errorf("%w: %d issues in %s", script.ErrInvalidScript, len(issues), label),
		Code: ExitValidationFailure,
	}
}
