package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const stdinArg = "-"

// readInput reads a file argument, or stdin when the argument is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, string, error) {
	if path == stdinArg {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "stdin", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read %s: %w", path, err)
	}

	return data, path, nil
}
