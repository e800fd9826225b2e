package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/ordmap/internal/observability"
	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

// ErrExpectation is returned when an operation's expect field does not hold.
var ErrExpectation = errors.New("expectation failed")

// Result is the outcome of one script operation.
type Result struct {
	Err     error
	Key     *int64
	Op      string
	Outcome string
	// Value is the value read by get, find and ceil, or written by insert.
	Value string
	// FoundKey is the key find or ceil landed on.
	FoundKey int64
	Index    int
}

// Runner replays scripts against a single tree.
type Runner struct {
	tree    *rbtree.Tree[int64, string]
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.TreeMetrics
	out     io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithTracer sets the tracer used for the per-run span.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

// WithMetrics records every operation into tm.
func WithMetrics(tm *observability.TreeMetrics) Option {
	return func(r *Runner) { r.metrics = tm }
}

// WithOutput sets where dump operations write. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// NewRunner creates a runner over tree.
func NewRunner(tree *rbtree.Tree[int64, string], opts ...Option) *Runner {
	r := &Runner{
		tree:   tree,
		logger: slog.Default(),
		tracer: nooptrace.NewTracerProvider().Tracer(""),
		out:    io.Discard,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Tree returns the tree the runner operates on.
func (r *Runner) Tree() *rbtree.Tree[int64, string] {
	return r.tree
}

// Run executes every operation in order. Failed operations do not stop the
// run; their errors are joined into the returned error.
func (r *Runner) Run(ctx context.Context, s *Script) ([]Result, error) {
	ctx, span := r.tracer.Start(ctx, "ordmap.script.run",
		trace.WithAttributes(
			attribute.String("script.name", s.Name),
			attribute.Int("script.ops", len(s.Ops)),
		))
	defer span.End()

	results := make([]Result, 0, len(s.Ops))

	var errs []error

	for idx, op := range s.Ops {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)

			break
		}

		start := time.Now()
		res := r.apply(ctx, idx, op)

		if r.metrics != nil {
			r.metrics.RecordOp(ctx, op.Op, res.Outcome, time.Since(start))
		}

		if res.Err != nil {
			errs = append(errs, fmt.Errorf("op #%d (%s): %w", idx, op.Op, res.Err))
			r.logger.WarnContext(ctx, "script operation failed",
				"index", idx, "op", op.Op, "error", res.Err)
		}

		results = append(results, res)
	}

	if r.metrics != nil {
		r.metrics.RecordStats(ctx, r.tree.Stats())
		r.metrics.RecordShape(ctx, r.tree.Len(), r.tree.Height())
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "script failed")
	}

	span.SetAttributes(attribute.Int("tree.size", r.tree.Len()))

	r.logger.DebugContext(ctx, "script finished",
		"name", s.Name, "ops", len(results), "failed", len(errs), "size", r.tree.Len())

	return results, err
}

func (r *Runner) apply(ctx context.Context, idx int, op Op) Result {
	res := Result{Index: idx, Op: op.Op, Key: op.Key, Outcome: observability.OutcomeOK}

	switch op.Op {
	case OpInsert, OpRemove, OpGet, OpFind, OpCeil:
		if op.Key == nil {
			res.Err = fmt.Errorf("%w: %s without key", ErrInvalidScript, op.Op)
			res.Outcome = observability.OutcomeError

			return res
		}
	}

	switch op.Op {
	case OpInsert:
		existed := r.tree.Contains(*op.Key)
		res.Value = op.Value
		res.Err = r.tree.Insert(*op.Key, op.Value)
		res.Err = errors.Join(res.Err, expect(op.Expect, existed))
	case OpRemove:
		err := r.tree.Remove(*op.Key)
		found := !errors.Is(err, rbtree.ErrNotFound)

		if !found {
			res.Outcome = observability.OutcomeMissing
		} else {
			res.Err = err
		}

		res.Err = errors.Join(res.Err, expect(op.Expect, found))
	case OpGet:
		value, found := r.tree.Get(*op.Key)
		if found {
			res.Value = value
		} else {
			res.Outcome = observability.OutcomeMissing
		}

		res.Err = expect(op.Expect, found)
	case OpFind, OpCeil:
		iter := r.tree.Find(*op.Key)
		if op.Op == OpCeil {
			iter = r.tree.FindGE(*op.Key)
		}

		if iter.Valid() {
			res.FoundKey = iter.Key()
			res.Value = iter.Value()
		} else {
			res.Outcome = observability.OutcomeMissing
		}

		res.Err = expect(op.Expect, iter.Valid())
	case OpCheck:
		res.Err = r.tree.Validate()
		if res.Err != nil && r.metrics != nil {
			r.metrics.RecordViolation(ctx)
		}
	case OpDump:
		res.Err = r.tree.Dump(r.out)
	default:
		res.Err = fmt.Errorf("%w: %q", ErrUnknownOp, op.Op)
	}

	if res.Err != nil {
		res.Outcome = observability.OutcomeError
	}

	return res
}

func expect(want string, found bool) error {
	switch {
	case want == ExpectFound && !found:
		return fmt.Errorf("%w: want found, key is absent", ErrExpectation)
	case want == ExpectMissing && found:
		return fmt.Errorf("%w: want missing, key is present", ErrExpectation)
	default:
		return nil
	}
}
