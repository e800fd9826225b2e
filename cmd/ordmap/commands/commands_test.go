package commands_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ordmap/cmd/ordmap/commands"
	"github.com/Sumatoshi-tech/ordmap/internal/config"
	"github.com/Sumatoshi-tech/ordmap/internal/script"
)

const demoScript = `name: demo
ops:
  - {op: insert, key: 10, value: ten}
  - {op: insert, key: 20, value: twenty}
  - {op: insert, key: 5, value: five}
  - {op: get, key: 10, expect: found}
  - {op: ceil, key: 11}
  - {op: find, key: 11, expect: missing}
  - {op: find, key: 5, expect: found}
  - {op: remove, key: 7}
  - {op: remove, key: 20, expect: found}
  - {op: check}
`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	root := commands.NewRootCommand()
	root.SetArgs(append([]string{"--no-color"}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)

	err := root.Execute()

	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ordmap "))
	assert.Contains(t, out, "commit:")
}

func TestRun_File(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "run", "--format", "plain", writeFile(t, "demo.yaml", demoScript))
	require.NoError(t, err)

	assert.Contains(t, out, `insert 10 = "ten" ok`)
	assert.Contains(t, out, `get    10 = "ten" ok`)
	assert.Contains(t, out, `ceil   11 -> 20 = "twenty" ok`)
	assert.Contains(t, out, "find   11 missing")
	assert.Contains(t, out, `find   5 = "five" ok`)
	assert.Contains(t, out, "remove 7 missing")
	assert.Contains(t, out, "5\tfive\tRed\n10\tten\tBlack\n")
	assert.Contains(t, out, "invariants hold (2 nodes, height 2, black height 1)")
}

func TestRun_Stdin(t *testing.T) {
	t.Parallel()

	out, err := execute(t, demoScript, "run", "--format", "sketch", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "10:ten")
}

func TestRun_TableIsTheDefault(t *testing.T) {
	t.Parallel()

	out, err := execute(t, demoScript, "run", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "2 nodes")
}

func TestRun_ExpectationFailure(t *testing.T) {
	t.Parallel()

	doc := "ops:\n  - {op: remove, key: 1, expect: found}\n"

	out, err := execute(t, doc, "run", "--format", "plain", "-")
	require.ErrorIs(t, err, script.ErrExpectation)
	assert.Equal(t, commands.ExitFailure, commands.ExitCode(err))
	assert.Contains(t, out, "error: expectation failed")
	assert.Contains(t, out, "invariants hold (0 nodes")
}

func TestRun_InvalidScript(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "ops:\n  - {op: insert}\n", "run", "-")
	require.ErrorIs(t, err, script.ErrInvalidScript)
}

func TestRun_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := execute(t, demoScript, "run", "--format", "svg", "-")
	require.Error(t, err)
}

func TestRun_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "run", filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_BadConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, "ordmap.yaml", "render:\n  format: svg\n")

	_, err := execute(t, demoScript, "--config", cfgPath, "run", "-")
	require.ErrorIs(t, err, config.ErrInvalidFormat)
}

func TestRun_BadLogLevelFlag(t *testing.T) {
	t.Parallel()

	_, err := execute(t, demoScript, "--log-level", "loud", "run", "-")
	require.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestFixture(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "fixture", "--format", "plain")
	require.NoError(t, err)

	before, after, found := strings.Cut(out, "after removing 20:")
	require.True(t, found)

	assert.Contains(t, before, "after 12 inserts:")
	assert.Contains(t, before, "20\t20\tBlack\n")
	assert.NotContains(t, after, "20\t20\t")
	assert.Contains(t, after, "40\t40\tBlack\n")
	assert.Contains(t, after, "invariants hold (11 nodes")
}

func TestStress(t *testing.T) {
	t.Parallel()

	chart := filepath.Join(t.TempDir(), "height.html")

	out, err := execute(t, "", "stress",
		"--seed", "3",
		"--operations", "2000",
		"--key-space", "150",
		"--check-every", "250",
		"--sample-every", "100",
		"--chart", chart,
		"--metrics",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "2,000")
	assert.Contains(t, out, "9 passed")
	assert.Contains(t, out, "height chart written to "+chart)
	assert.Contains(t, out, "ordmap_ops")

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Tree height")
}

func TestStress_MetricsAddr(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "stress", "--operations", "500", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "metrics served at http://127.0.0.1:")
	assert.Contains(t, out, "/metrics")

	_, err = execute(t, "", "stress", "--operations", "10", "--metrics-addr", "not-an-address")
	require.Error(t, err)
}

func TestStress_InvalidFlags(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "stress", "--operations", "0")
	require.ErrorIs(t, err, config.ErrInvalidOperations)
}

func TestStress_MemoryLimit(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "stress", "--operations", "100", "--memory-limit", "1B", "--insert-ratio", "1")
	require.Error(t, err)
	assert.Equal(t, commands.ExitFailure, commands.ExitCode(err))
	assert.Contains(t, out, "stress run failed")
}

func TestSchema(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "draft-07")
	assert.Contains(t, out, `"ceil"`)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	out, err := execute(t, demoScript, "validate", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Script stdin is valid")

	path := writeFile(t, "bad.yaml", "ops:\n  - {op: insert, key: 1}\n  - {op: pop}\n")

	out, err = execute(t, "", "validate", path)
	require.ErrorIs(t, err, script.ErrInvalidScript)
	assert.Equal(t, commands.ExitValidationFailure, commands.ExitCode(err))
	assert.Contains(t, out, "is invalid")
	assert.Contains(t, out, "ops.1.op")
}

func TestValidate_Unreadable(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "ops: [", "validate", "-")
	require.Error(t, err)
	assert.Equal(t, commands.ExitValidationFailure, commands.ExitCode(err))
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, commands.ExitFailure, commands.ExitCode(errors.New("boom")))
	assert.Equal(t, 2, commands.ExitCode(&commands.ExitError{Err: errors.New("x"), Code: 2}))
}
