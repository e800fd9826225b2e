// Package stress drives a tree with a seeded random workload and checks it
// against a map after every operation.
package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/ordmap/internal/config"
	"github.com/Sumatoshi-tech/ordmap/internal/observability"
	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
	"github.com/Sumatoshi-tech/ordmap/pkg/safeconv"
)

var (
	// ErrMismatch is returned when the tree disagrees with the reference map.
	ErrMismatch = errors.New("tree disagrees with reference map")
	// ErrHeightBound is returned when the tree is taller than 2*log2(n+1).
	ErrHeightBound = errors.New("height exceeds red-black bound")
	// ErrMemoryLimit is returned when the node arena outgrows the limit.
	ErrMemoryLimit = errors.New("node arena exceeds memory limit")
	// ErrInvalidSettings is returned for a workload that cannot run.
	ErrInvalidSettings = errors.New("invalid stress settings")
)

const ctxCheckInterval = 1024

// Settings describe one workload.
type Settings struct {
	Seed        int64
	Operations  int
	KeySpace    int
	InsertRatio float64
	// CheckEvery runs Validate every N operations; 0 checks only at the end.
	CheckEvery  int
	SampleEvery int
	// MemoryLimit caps Allocator.Footprint in bytes; 0 disables the cap.
	MemoryLimit uint64
}

// SettingsFrom converts the stress config section.
func SettingsFrom(cfg config.StressConfig) (Settings, error) {
	limit, err := cfg.MemoryLimitBytes()
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Seed:        cfg.Seed,
		Operations:  cfg.Operations,
		KeySpace:    cfg.KeySpace,
		InsertRatio: cfg.InsertRatio,
		CheckEvery:  cfg.CheckEvery,
		SampleEvery: cfg.SampleEvery,
		MemoryLimit: limit,
	}, nil
}

// Sample is a snapshot of the tree's shape.
type Sample struct {
	Op     int
	Size   int
	Height int
	// Bound is the red-black height limit 2*log2(Size+1).
	Bound float64
}

// Result summarizes a finished workload.
type Result struct {
	Samples    []Sample
	Stats      rbtree.Stats
	Duration   time.Duration
	Footprint  uint64
	Operations int
	Inserts    int
	Removals   int
	Misses     int
	Checks     int
	// Violations counts the checks that failed.
	Violations int
	FinalSize  int
	MaxHeight  int
}

// Runner executes workloads.
type Runner struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.TreeMetrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithTracer sets the tracer for the workload span.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

// WithMetrics records operations, samples and checks into tm.
func WithMetrics(tm *observability.TreeMetrics) Option {
	return func(r *Runner) { r.metrics = tm }
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger: slog.Default(),
		tracer: nooptrace.NewTracerProvider().Tracer(""),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type workload struct {
	*Runner

	settings Settings
	tree     *rbtree.Tree[int64, int64]
	oracle   map[int64]int64
	rng      *rand.Rand
	result   *Result
}

// Run executes the workload on a fresh tree. The partial result is returned
// together with the error when a check fails.
func (r *Runner) Run(ctx context.Context, settings Settings) (*Result, error) {
	if settings.KeySpace <= 0 || settings.Operations < 0 {
		return nil, fmt.Errorf("%w: %d operations over %d keys",
			ErrInvalidSettings, settings.Operations, settings.KeySpace)
	}

	ctx, span := r.tracer.Start(ctx, "ordmap.stress.run",
		trace.WithAttributes(
			attribute.Int64("stress.seed", settings.Seed),
			attribute.Int("stress.operations", settings.Operations),
			attribute.Int("stress.key_space", settings.KeySpace),
		))
	defer span.End()

	w := &workload{
		Runner:   r,
		settings: settings,
		tree:     rbtree.New[int64, int64](),
		oracle:   make(map[int64]int64),
		rng:      rand.New(rand.NewPCG(safeconv.Int64Bits(settings.Seed), safeconv.Int64Bits(settings.Seed)>>32)), //nolint:gosec // seeded on purpose.
		result:   &Result{},
	}

	start := time.Now()
	err := w.run(ctx)
	w.result.Duration = time.Since(start)
	w.result.Stats = w.tree.Stats()
	w.result.FinalSize = w.tree.Len()
	w.result.Footprint = w.tree.Allocator().Footprint()

	if r.metrics != nil {
		r.metrics.RecordStats(ctx, w.result.Stats)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stress run failed")
		r.logger.ErrorContext(ctx, "stress run failed", "after", w.result.Operations, "error", err)

		return w.result, err
	}

	r.logger.InfoContext(ctx, "stress run finished",
		"operations", w.result.Operations,
		"size", w.result.FinalSize,
		"max_height", w.result.MaxHeight,
		"rotations", w.result.Stats.Rotations,
		"duration", w.result.Duration)

	return w.result, nil
}

func (w *workload) run(ctx context.Context) error {
	for op := 1; op <= w.settings.Operations; op++ {
		if op%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("stress interrupted: %w", err)
			}
		}

		err := w.step(ctx)
		if err != nil {
			return fmt.Errorf("operation %d: %w", op, err)
		}

		w.result.Operations = op

		if w.settings.SampleEvery > 0 && op%w.settings.SampleEvery == 0 {
			w.sample(ctx, op)
		}

		if w.settings.CheckEvery > 0 && op%w.settings.CheckEvery == 0 {
			err = w.check(ctx)
			if err != nil {
				return fmt.Errorf("check after operation %d: %w", op, err)
			}
		}
	}

	w.sample(ctx, w.result.Operations)

	return w.final(ctx)
}

func (w *workload) step(ctx context.Context) error {
	key := w.rng.Int64N(int64(w.settings.KeySpace))

	if w.rng.Float64() < w.settings.InsertRatio {
		value := w.rng.Int64()
		start := time.Now()

		err := w.tree.Insert(key, value)
		w.record(ctx, "insert", observability.OutcomeOK, err, start)

		if err != nil {
			return err //nolint:wrapcheck // run adds the operation number.
		}

		w.oracle[key] = value
		w.result.Inserts++

		if got, ok := w.tree.Get(key); !ok || got != value {
			return fmt.Errorf("%w: get %d after insert", ErrMismatch, key)
		}

		if w.settings.MemoryLimit > 0 && w.tree.Allocator().Footprint() > w.settings.MemoryLimit {
			return fmt.Errorf("%w: %d > %d bytes",
				ErrMemoryLimit, w.tree.Allocator().Footprint(), w.settings.MemoryLimit)
		}

		return nil
	}

	_, present := w.oracle[key]
	start := time.Now()
	err := w.tree.Remove(key)

	switch {
	case present && err == nil:
		delete(w.oracle, key)
		w.result.Removals++
		w.record(ctx, "remove", observability.OutcomeOK, nil, start)
	case !present && errors.Is(err, rbtree.ErrNotFound):
		w.result.Misses++
		w.record(ctx, "remove", observability.OutcomeMissing, nil, start)
	default:
		w.record(ctx, "remove", observability.OutcomeError, err, start)

		return fmt.Errorf("%w: remove %d (present=%t): %w", ErrMismatch, key, present, err)
	}

	if w.tree.Contains(key) {
		return fmt.Errorf("%w: %d still present after remove", ErrMismatch, key)
	}

	return nil
}

func (w *workload) record(ctx context.Context, op, outcome string, err error, start time.Time) {
	if w.metrics == nil {
		return
	}

	if err != nil {
		outcome = observability.OutcomeError
	}

	w.metrics.RecordOp(ctx, op, outcome, time.Since(start))
}

func (w *workload) sample(ctx context.Context, op int) {
	size := w.tree.Len()
	height := w.tree.Height()

	w.result.Samples = append(w.result.Samples, Sample{
		Op:     op,
		Size:   size,
		Height: height,
		Bound:  HeightBound(size),
	})
	w.result.MaxHeight = max(w.result.MaxHeight, height)

	if w.metrics != nil {
		w.metrics.RecordShape(ctx, size, height)
	}
}

func (w *workload) check(ctx context.Context) error {
	w.result.Checks++

	err := w.tree.Validate()
	if err == nil && w.tree.Len() != len(w.oracle) {
		err = fmt.Errorf("%w: %d nodes, %d expected", ErrMismatch, w.tree.Len(), len(w.oracle))
	}

	if err == nil {
		size := w.tree.Len()
		if height := w.tree.Height(); float64(height) > HeightBound(size) {
			err = fmt.Errorf("%w: height %d with %d nodes", ErrHeightBound, height, size)
		}
	}

	if err != nil {
		w.result.Violations++

		if w.metrics != nil {
			w.metrics.RecordViolation(ctx)
		}
	}

	w.logger.DebugContext(ctx, "invariant check", "size", w.tree.Len(), "ok", err == nil)

	return err
}

func (w *workload) final(ctx context.Context) error {
	err := w.check(ctx)
	if err != nil {
		return fmt.Errorf("final check: %w", err)
	}

	keys := slices.Sorted(maps.Keys(w.oracle))
	iter := w.tree.Min()

	for _, key := range keys {
		if iter.Limit() || iter.Key() != key || iter.Value() != w.oracle[key] {
			return fmt.Errorf("%w: in-order walk diverges at %d", ErrMismatch, key)
		}

		iter = iter.Next()
	}

	if !iter.Limit() {
		return fmt.Errorf("%w: extra key %d", ErrMismatch, iter.Key())
	}

	return nil
}

// HeightBound is the maximum height of a red-black tree with n nodes.
func HeightBound(n int) float64 {
	return 2 * math.Log2(float64(n)+1)
}
