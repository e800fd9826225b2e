package observability_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ordmap/internal/observability"
	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

func newPrometheusProviders(t *testing.T) observability.Providers {
	t.Helper()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	return providers
}

func TestPrometheusExporter_ServesMetrics(t *testing.T) {
	t.Parallel()

	providers := newPrometheusProviders(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()

	providers.Prometheus.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "target_info")
}

func TestPrometheusExporter_WriteTextIncludesTreeMetrics(t *testing.T) {
	t.Parallel()

	providers := newPrometheusProviders(t)

	metrics, err := observability.NewTreeMetrics(providers.Meter)
	require.NoError(t, err)

	tree := rbtree.New[int, int]()
	for key := range 16 {
		require.NoError(t, tree.Insert(key, key))
	}

	ctx := context.Background()
	metrics.RecordOp(ctx, "insert", observability.OutcomeOK, time.Microsecond)
	metrics.RecordOp(ctx, "remove", observability.OutcomeMissing, time.Microsecond)
	metrics.RecordStats(ctx, tree.Stats())
	metrics.RecordShape(ctx, tree.Len(), tree.Height())
	metrics.RecordViolation(ctx)

	var buf bytes.Buffer

	require.NoError(t, providers.Prometheus.WriteText(&buf))

	text := buf.String()
	assert.Contains(t, text, "ordmap_ops")
	assert.Contains(t, text, `op="insert"`)
	assert.Contains(t, text, `outcome="missing"`)
	assert.Contains(t, text, "ordmap_rotations")
	assert.Contains(t, text, `fixup="insert"`)
	assert.Contains(t, text, "ordmap_tree_size")
	assert.Contains(t, text, "ordmap_tree_height")
	assert.Contains(t, text, "ordmap_invariant_violations")
}

func TestTreeMetrics_NoopMeter(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	metrics, err := observability.NewTreeMetrics(providers.Meter)
	require.NoError(t, err)

	// Counters from a different, younger tree must not underflow.
	metrics.RecordStats(context.Background(), rbtree.Stats{Rotations: 10})
	metrics.RecordStats(context.Background(), rbtree.Stats{Rotations: 2})
}
