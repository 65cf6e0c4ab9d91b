package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/engine"
	"github.com/siftlabs/sift/internal/runner"
	"github.com/siftlabs/sift/internal/session"
	"github.com/siftlabs/sift/internal/store"
	"github.com/siftlabs/sift/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Select      bool
	ForceSelect bool
	NoSelect    bool
	NoCollect   bool
	Filters     []string
	Worker      bool
	CollectCmd  []string
	RunCmd      []string

	// Host allows overriding the test host (for testing). If nil, an
	// ExecHost built from CollectCmd/RunCmd is used.
	Host runner.Host

	// Tracer allows overriding the coverage tracer (for testing). If
	// nil, a CoverProfileTracer rooted at the project root is used.
	Tracer trace.Tracer
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the suite, skipping tests with unchanged dependencies",
		Long: `Run the test suite through the configured host commands.

Each fresh or affected test is executed under coverage tracing; its
fingerprint, outcome, and duration are committed per test so an
interrupted run keeps everything finished so far. Tests whose recorded
fingerprints still match the working tree are skipped when --select is
active, and merely reported otherwise.

Example:
  sift run --select
  sift run --force-select --filter 'pkg/parser::*'
  sift run --no-collect --env '"ci"'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Select, "select", false, "skip tests whose recorded dependencies are unchanged")
	cmd.Flags().BoolVar(&opts.ForceSelect, "force-select", false, "apply selection and restrict to --filter patterns")
	cmd.Flags().BoolVar(&opts.NoSelect, "no-select", false, "run everything; selection only orders the suite")
	cmd.Flags().BoolVar(&opts.NoCollect, "no-collect", false, "do not write fingerprints or outcomes this run")
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "test name filter pattern (glob), repeatable")
	cmd.Flags().BoolVar(&opts.Worker, "worker", false, "distributed worker mode (suppresses fingerprint GC)")
	cmd.Flags().StringArrayVar(&opts.CollectCmd, "collect-cmd", nil, "command listing test identifiers, one per line")
	cmd.Flags().StringArrayVar(&opts.RunCmd, "run-cmd", nil, "command running one test; {id} {module} {class} {name} {profile} expand")

	return cmd
}

func runSuite(opts *RunOptions, cmd *cobra.Command) error {
	logger := setupLogging(opts.Verbose)

	cfg, err := resolveConfig(opts)
	if err != nil {
		return exitErrorFor(err)
	}
	slog.Info("opening database", "path", cfg.Database, "environment", cfg.Environment)
	st, err := store.Open(cfg.Database, cfg.Environment)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	host := opts.Host
	if host == nil {
		if len(opts.CollectCmd) == 0 || len(opts.RunCmd) == 0 {
			return NewExitError(ExitCommandError, "both --collect-cmd and --run-cmd are required")
		}
		host = &runner.ExecHost{
			Dir:            opts.Root,
			CollectCommand: opts.CollectCmd,
			RunCommand:     opts.RunCmd,
		}
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = &trace.CoverProfileTracer{Root: opts.Root}
	}

	libraries := session.InstalledLibraries(opts.Root)
	sess := session.New(cfg, st, host, tracer, opts.Root, libraries, logger)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	summary, err := sess.Run(ctx)
	if err != nil {
		return exitErrorFor(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary.Header)
	if summary.Notice != "" {
		fmt.Fprintln(cmd.OutOrStdout(), summary.Notice)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "executed %d, deselected %d, failed %d\n",
		summary.Executed, summary.Deselected, summary.Failed)

	if summary.ExitStatus != session.ExitOK {
		return NewExitError(ExitFailure, fmt.Sprintf("%d test(s) failed", summary.Failed))
	}
	return nil
}

// resolveConfig merges file defaults under CLI flags and resolves the
// selection mode.
func resolveConfig(opts *RunOptions) (*config.Resolved, error) {
	fc, err := config.LoadFile(opts.configFilePath())
	if err != nil {
		return nil, err
	}

	raw := fc.Merge(config.Options{
		Select:          opts.Select,
		ForceSelect:     opts.ForceSelect,
		NoSelect:        opts.NoSelect,
		NoCollect:       opts.NoCollect,
		EnvironmentExpr: opts.Environment,
		Filters:         opts.Filters,
		Worker:          opts.Worker,
		Database:        opts.Database,
	})
	cfg, err := config.Resolve(raw)
	if err != nil {
		return nil, err
	}
	// Paths are resolved after the merge so a file-configured database
	// lands under the project root too.
	cfg.Database = opts.resolveDatabase(cfg.Database)
	return cfg, nil
}

// exitErrorFor maps the engine error taxonomy onto process exit codes:
// configuration and corruption problems are command errors, everything
// else is an ordinary failure.
func exitErrorFor(err error) error {
	if engine.IsFatal(err) {
		return WrapExitError(ExitCommandError, "fatal", err)
	}
	return WrapExitError(ExitFailure, "run failed", err)
}

// setupLogging configures the default logger from the verbose flag.
func setupLogging(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// signalContext derives a context cancelled on SIGINT/SIGTERM, so an
// interrupted run still keeps every per-test commit made so far.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after current test", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
