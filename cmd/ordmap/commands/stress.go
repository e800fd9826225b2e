package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordmap/internal/observability"
	"github.com/Sumatoshi-tech/ordmap/internal/render"
	"github.com/Sumatoshi-tech/ordmap/internal/stress"
)

type stressCommand struct {
	g *globals

	seed        int64
	operations  int
	keySpace    int
	insertRatio float64
	checkEvery  int
	sampleEvery int
	memoryLimit string

	chartPath   string
	metrics     bool
	metricsAddr string
}

func newStressCommand(g *globals) *cobra.Command {
	sc := &stressCommand{g: g}

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a randomized workload against a reference map",
		Long: `Apply a seeded mix of inserts and removals to a tree, compare every step
with a Go map and check the red-black invariants periodically. Flags override
the stress section of the config file.

Examples:
  ordmap stress --operations 1000000 --key-space 50000
  ordmap stress --seed 42 --chart height.html --metrics
  ordmap stress -n 50000000 --metrics-addr :9464`,
		Args: cobra.NoArgs,
		RunE: sc.run,
	}

	cmd.Flags().Int64Var(&sc.seed, "seed", 0, "Random seed")
	cmd.Flags().IntVarP(&sc.operations, "operations", "n", 0, "Number of operations")
	cmd.Flags().IntVar(&sc.keySpace, "key-space", 0, "Keys are drawn from [0, key-space)")
	cmd.Flags().Float64Var(&sc.insertRatio, "insert-ratio", 0, "Share of operations that insert")
	cmd.Flags().IntVar(&sc.checkEvery, "check-every", 0, "Validate invariants every N operations (0 = only at the end)")
	cmd.Flags().IntVar(&sc.sampleEvery, "sample-every", 0, "Sample height and size every N operations")
	cmd.Flags().StringVar(&sc.memoryLimit, "memory-limit", "", "Cap on the node arena (e.g. '64MiB', '1GB')")
	cmd.Flags().StringVar(&sc.chartPath, "chart", "", "Write an HTML height chart to this path")
	cmd.Flags().BoolVar(&sc.metrics, "metrics", false, "Print Prometheus metrics after the run")
	cmd.Flags().StringVar(&sc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics at this address during the run")

	return cmd
}

func (sc *stressCommand) run(cmd *cobra.Command, _ []string) error {
	e, err := sc.g.setup(cmd, observability.ModeStress, sc.metrics || sc.metricsAddr != "")
	if err != nil {
		return err
	}
	defer e.close()

	if sc.metricsAddr != "" {
		srv, srvErr := observability.NewMetricsServer(cmd.Context(), sc.metricsAddr, e.providers.Prometheus)
		if srvErr != nil {
			return srvErr
		}

		defer func() {
			closeErr := srv.Close()
			if closeErr != nil {
				e.providers.Logger.Warn("metrics server shutdown", "error", closeErr)
			}
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "metrics served at http://%s/metrics\n", srv.Addr())
	}

	sc.override(cmd, e)

	err = e.cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	settings, err := stress.SettingsFrom(e.cfg.Stress)
	if err != nil {
		return err
	}

	runner := stress.NewRunner(
		stress.WithLogger(e.providers.Logger),
		stress.WithTracer(e.providers.Tracer),
		stress.WithMetrics(e.metrics),
	)

	res, runErr := runner.Run(cmd.Context(), settings)
	if res == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, render.Summary(res, e.painter))

	if sc.chartPath != "" {
		err = writeChart(sc.chartPath, res.Samples)
		if err != nil {
			return errors.Join(runErr, err)
		}

		fmt.Fprintf(out, "height chart written to %s\n", sc.chartPath)
	}

	if sc.metrics && e.providers.Prometheus != nil {
		fmt.Fprintln(out)

		err = e.providers.Prometheus.WriteText(out)
		if err != nil {
			return errors.Join(runErr, err)
		}
	}

	if runErr != nil {
		fmt.Fprintln(out, e.painter.Bad("stress run failed: "+runErr.Error()))

		return &ExitError{Err: runErr, Code: ExitFailure}
	}

	return nil
}

func (sc *stressCommand) override(cmd *cobra.Command, e *env) {
	flags := cmd.Flags()
	cfg := &e.cfg.Stress

	if flags.Changed("seed") {
		cfg.Seed = sc.seed
	}

	if flags.Changed("operations") {
		cfg.Operations = sc.operations
	}

	if flags.Changed("key-space") {
		cfg.KeySpace = sc.keySpace
	}

	if flags.Changed("insert-ratio") {
		cfg.InsertRatio = sc.insertRatio
	}

	if flags.Changed("check-every") {
		cfg.CheckEvery = sc.checkEvery
	}

	if flags.Changed("sample-every") {
		cfg.SampleEvery = sc.sampleEvery
	}

	if flags.Changed("memory-limit") {
		cfg.MemoryLimit = sc.memoryLimit
	}
}

func writeChart(path string, samples []stress.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	err = render.WriteHeightChart(f, samples)

	closeErr := f.Close()
	if closeErr != nil && err == nil {
		err = fmt.Errorf("close chart: %w", closeErr)
	}

	return err
}
