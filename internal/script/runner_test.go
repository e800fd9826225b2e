package script_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ordmap/internal/observability"
	"github.com/Sumatoshi-tech/ordmap/internal/script"
	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

func key(k int64) *int64 {
	return &k
}

func newRunner(opts ...script.Option) *script.Runner {
	return script.NewRunner(rbtree.New[int64, string](), opts...)
}

func TestRunner_Fixture(t *testing.T) {
	t.Parallel()

	runner := newRunner()

	results, err := runner.Run(context.Background(), script.Fixture())
	require.NoError(t, err)
	require.Len(t, results, 13)

	tree := runner.Tree()
	assert.Equal(t, 12, tree.Len())
	assert.Equal(t, int64(10), tree.Root().Key())
	assert.Equal(t, rbtree.Black, tree.Root().Color())

	for _, res := range results {
		assert.Equal(t, observability.OutcomeOK, res.Outcome, "op #%d", res.Index)
	}
}

func TestRunner_Outcomes(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	runner := newRunner(script.WithOutput(&out))

	results, err := runner.Run(context.Background(), &script.Script{Ops: []script.Op{
		{Op: script.OpInsert, Key: key(10), Value: "ten"},
		{Op: script.OpInsert, Key: key(20), Value: "twenty"},
		{Op: script.OpInsert, Key: key(10), Value: "TEN", Expect: script.ExpectFound},
		{Op: script.OpGet, Key: key(10)},
		{Op: script.OpGet, Key: key(15)},
		{Op: script.OpCeil, Key: key(15)},
		{Op: script.OpCeil, Key: key(21)},
		{Op: script.OpRemove, Key: key(30)},
		{Op: script.OpRemove, Key: key(20), Expect: script.ExpectFound},
		{Op: script.OpCheck},
		{Op: script.OpDump},
		{Op: script.OpFind, Key: key(10), Expect: script.ExpectFound},
	}})
	require.NoError(t, err)
	require.Len(t, results, 12)

	assert.Equal(t, observability.OutcomeOK, results[2].Outcome)

	assert.Equal(t, observability.OutcomeOK, results[3].Outcome)
	assert.Equal(t, "TEN", results[3].Value)

	assert.Equal(t, observability.OutcomeMissing, results[4].Outcome)
	assert.Empty(t, results[4].Value)

	assert.Equal(t, observability.OutcomeOK, results[5].Outcome)
	assert.Equal(t, int64(20), results[5].FoundKey)
	assert.Equal(t, "twenty", results[5].Value)

	assert.Equal(t, observability.OutcomeMissing, results[6].Outcome)

	assert.Equal(t, observability.OutcomeMissing, results[7].Outcome)
	require.NoError(t, results[7].Err)

	assert.Equal(t, observability.OutcomeOK, results[8].Outcome)
	assert.Equal(t, 1, runner.Tree().Len())

	assert.Equal(t, "10\tTEN\tBlack\n", out.String())

	assert.Equal(t, observability.OutcomeOK, results[11].Outcome)
	assert.Equal(t, int64(10), results[11].FoundKey)
	assert.Equal(t, "TEN", results[11].Value)
}

func TestRunner_FindMatchesExactly(t *testing.T) {
	t.Parallel()

	runner := newRunner()

	results, err := runner.Run(context.Background(), &script.Script{Ops: []script.Op{
		{Op: script.OpInsert, Key: key(20), Value: "twenty"},
		{Op: script.OpFind, Key: key(15), Expect: script.ExpectMissing},
		{Op: script.OpFind, Key: key(15), Expect: script.ExpectFound},
		{Op: script.OpCeil, Key: key(15), Expect: script.ExpectFound},
	}})
	require.ErrorIs(t, err, script.ErrExpectation)
	require.Len(t, results, 4)

	require.NoError(t, results[1].Err)
	assert.Equal(t, observability.OutcomeMissing, results[1].Outcome)
	assert.Zero(t, results[1].FoundKey)
	assert.Empty(t, results[1].Value)

	require.ErrorIs(t, results[2].Err, script.ErrExpectation)
	assert.Contains(t, results[2].Err.Error(), "key is absent")

	require.NoError(t, results[3].Err)
	assert.Equal(t, int64(20), results[3].FoundKey)
	assert.Equal(t, "twenty", results[3].Value)
}

func TestRunner_ExpectationFailuresDoNotStopTheRun(t *testing.T) {
	t.Parallel()

	runner := newRunner()

	results, err := runner.Run(context.Background(), &script.Script{Ops: []script.Op{
		{Op: script.OpRemove, Key: key(1), Expect: script.ExpectFound},
		{Op: script.OpInsert, Key: key(1), Value: "one", Expect: script.ExpectFound},
		{Op: script.OpGet, Key: key(1), Expect: script.ExpectMissing},
		{Op: script.OpInsert, Key: key(2), Value: "two", Expect: script.ExpectMissing},
	}})
	require.ErrorIs(t, err, script.ErrExpectation)
	require.Len(t, results, 4)

	assert.ErrorIs(t, results[0].Err, script.ErrExpectation)
	assert.ErrorIs(t, results[1].Err, script.ErrExpectation)
	assert.ErrorIs(t, results[2].Err, script.ErrExpectation)
	require.NoError(t, results[3].Err)

	for _, res := range results[:3] {
		assert.Equal(t, observability.OutcomeError, res.Outcome)
	}

	// The failed expectation on insert still stores the pair.
	assert.Equal(t, 2, runner.Tree().Len())
}

func TestRunner_RejectsMalformedOps(t *testing.T) {
	t.Parallel()

	runner := newRunner()

	results, err := runner.Run(context.Background(), &script.Script{Ops: []script.Op{
		{Op: "upsert", Key: key(1)},
		{Op: script.OpGet},
	}})
	require.ErrorIs(t, err, script.ErrUnknownOp)
	require.ErrorIs(t, err, script.ErrInvalidScript)
	require.Len(t, results, 2)
	assert.Equal(t, observability.OutcomeError, results[1].Outcome)
}

func TestRunner_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newRunner()

	results, err := runner.Run(ctx, script.Fixture())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Zero(t, runner.Tree().Len())
}

func TestRunner_RecordsMetrics(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	metrics, err := observability.NewTreeMetrics(providers.Meter)
	require.NoError(t, err)

	runner := newRunner(
		script.WithMetrics(metrics),
		script.WithTracer(providers.Tracer),
		script.WithLogger(providers.Logger),
	)

	_, err = runner.Run(context.Background(), script.Fixture())
	require.NoError(t, err)

	var buf bytes.Buffer

	require.NoError(t, providers.Prometheus.WriteText(&buf))

	text := buf.String()
	assert.Contains(t, text, `op="insert"`)
	assert.Contains(t, text, `op="check"`)
	assert.Contains(t, text, "ordmap_tree_size")
}
