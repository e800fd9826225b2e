// Package commands implements the ordmap command line.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordmap/internal/config"
	"github.com/Sumatoshi-tech/ordmap/internal/observability"
	"github.com/Sumatoshi-tech/ordmap/internal/render"
	"github.com/Sumatoshi-tech/ordmap/pkg/version"
)

// Exit codes.
const (
	ExitFailure           = 1
	ExitValidationFailure = 2
)

// ErrInvariantViolation is returned when a tree fails its invariant check.
var ErrInvariantViolation = errors.New("tree invariants violated")

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return ExitFailure
}

// globals are the persistent flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
	logJSON    bool
	noColor    bool
}

// env is what a command needs after flags and config are resolved.
type env struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.TreeMetrics
	painter   render.Painter
}

// NewRootCommand creates the ordmap root command with all subcommands.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "ordmap",
		Short: "Arena-backed red-black tree ordered map",
		Long: `ordmap exercises an ordered map built on a red-black tree whose nodes
live in an index-addressed arena.

Commands:
  run       Replay a YAML operation script
  fixture   Replay the built-in twelve-key fixture
  stress    Run a randomized workload against a reference map
  validate  Check a script against the script schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default ./ordmap.yaml or /etc/ordmap/ordmap.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "Emit JSON logs")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newRunCommand(g))
	root.AddCommand(newFixtureCommand(g))
	root.AddCommand(newStressCommand(g))
	root.AddCommand(newValidateCommand(g))
	root.AddCommand(newSchemaCommand())
	root.AddCommand(newVersionCommand())

	return root
}

// setup loads the config, applies flag overrides and starts telemetry.
// The caller must call env.close.
func (g *globals) setup(cmd *cobra.Command, mode observability.AppMode, prometheus bool) (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}

	if g.logJSON {
		cfg.Logging.JSON = true
	}

	if g.noColor {
		cfg.Render.Color = config.ColorNever
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	obsCfg := cfg.Observability(mode, version.Version)
	obsCfg.LogOutput = cmd.ErrOrStderr()
	obsCfg.Prometheus = prometheus

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	providers.Install()

	metrics, err := observability.NewTreeMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	return &env{
		cfg:       cfg,
		providers: providers,
		metrics:   metrics,
		painter:   render.NewPainter(render.ColorEnabled(cfg.Render.Color)),
	}, nil
}

func (e *env) close() {
	shutdownErr := e.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		e.providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String("ordmap"))
		},
	}
}
