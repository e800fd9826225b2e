package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
	"github.com/Sumatoshi-tech/ordmap/pkg/safeconv"
)

const (
	metricOpsTotal       = "ordmap.ops.total"
	metricOpDuration     = "ordmap.op.duration.seconds"
	metricRotationsTotal = "ordmap.rotations.total"
	metricFixupsTotal    = "ordmap.fixup.iterations.total"
	metricTreeSize       = "ordmap.tree.size"
	metricTreeHeight     = "ordmap.tree.height"
	metricViolations     = "ordmap.invariant.violations.total"

	attrOp      = "op"
	attrOutcome = "outcome"
	attrFixup   = "fixup"

	// OutcomeOK marks an operation that did what was asked.
	OutcomeOK = "ok"
	// OutcomeMissing marks a lookup or removal of an absent key.
	OutcomeMissing = "missing"
	// OutcomeError marks a failed operation.
	OutcomeError = "error"
)

// opBucketBoundaries covers 100ns to 10ms; single tree operations are far
// below the request-scale buckets used elsewhere.
var opBucketBoundaries = []float64{1e-7, 2.5e-7, 5e-7, 1e-6, 2.5e-6, 5e-6, 1e-5, 1e-4, 1e-3, 1e-2}

// TreeMetrics holds the OTel instruments describing ordered map activity.
type TreeMetrics struct {
	opsTotal       metric.Int64Counter
	opDuration     metric.Float64Histogram
	rotationsTotal metric.Int64Counter
	fixupsTotal    metric.Int64Counter
	violations     metric.Int64Counter
	treeSize       metric.Int64Gauge
	treeHeight     metric.Int64Gauge

	last rbtree.Stats
}

// NewTreeMetrics creates the tree instruments from the given meter.
func NewTreeMetrics(mt metric.Meter) (*TreeMetrics, error) {
	b := newMetricBuilder(mt)

	tm := &TreeMetrics{
		opsTotal:       b.counter(metricOpsTotal, "Tree operations by kind and outcome", "{operation}"),
		opDuration:     b.histogram(metricOpDuration, "Tree operation latency", "s", opBucketBoundaries...),
		rotationsTotal: b.counter(metricRotationsTotal, "Rotations performed while rebalancing", "{rotation}"),
		fixupsTotal:    b.counter(metricFixupsTotal, "Insert and delete fixup loop iterations", "{iteration}"),
		violations:     b.counter(metricViolations, "Failed invariant checks", "{check}"),
		treeSize:       b.gauge(metricTreeSize, "Number of nodes in the tree", "{node}"),
		treeHeight:     b.gauge(metricTreeHeight, "Longest root to leaf path", "{node}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return tm, nil
}

// RecordOp records a finished tree operation.
func (tm *TreeMetrics) RecordOp(ctx context.Context, op, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrOutcome, outcome),
	)

	tm.opsTotal.Add(ctx, 1, attrs)
	tm.opDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStats adds the growth of the tree's counters since the previous call.
func (tm *TreeMetrics) RecordStats(ctx context.Context, stats rbtree.Stats) {
	tm.rotationsTotal.Add(ctx, counterDelta(stats.Rotations, tm.last.Rotations))
	tm.fixupsTotal.Add(ctx, counterDelta(stats.InsertFixups, tm.last.InsertFixups),
		metric.WithAttributes(attribute.String(attrFixup, "insert")))
	tm.fixupsTotal.Add(ctx, counterDelta(stats.DeleteFixups, tm.last.DeleteFixups),
		metric.WithAttributes(attribute.String(attrFixup, "delete")))
	tm.last = stats
}

// RecordShape records the current size and height of a tree.
func (tm *TreeMetrics) RecordShape(ctx context.Context, size, height int) {
	tm.treeSize.Record(ctx, int64(size))
	tm.treeHeight.Record(ctx, int64(height))
}

// RecordViolation counts a failed invariant check.
func (tm *TreeMetrics) RecordViolation(ctx context.Context) {
	tm.violations.Add(ctx, 1)
}

func counterDelta(current, previous uint64) int64 {
	if current < previous {
		// A different tree; count it from zero.
		previous = 0
	}

	return safeconv.MustUint64ToInt64(current - previous)
}
