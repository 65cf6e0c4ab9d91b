package cli

import (
	"github.com/spf13/cobra"

	"github.com/siftlabs/sift/internal/engine"
	"github.com/siftlabs/sift/internal/session"
	"github.com/siftlabs/sift/internal/store"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Preview selection without running anything",
		Long: `Compare the recorded fingerprints against the working tree and
report which files changed and how many recorded tests would be skipped.
Nothing is executed and nothing is written.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	report, err := buildStatusReport(opts, cmd)
	if err != nil {
		return err
	}
	return report.Print(cmd.OutOrStdout(), opts.Format)
}

// buildStatusReport runs stability determination read-only.
func buildStatusReport(opts *RootOptions, cmd *cobra.Command) (StatusReport, error) {
	dbPath, env, err := opts.resolveReadOnly()
	if err != nil {
		return StatusReport{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	st, err := store.Open(dbPath, env)
	if err != nil {
		return StatusReport{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	libraries := session.InstalledLibraries(opts.Root)
	stab, err := engine.DetermineStable(cmd.Context(), st, opts.Root, libraries)
	if err != nil {
		return StatusReport{}, exitErrorFor(err)
	}

	return StatusReport{
		Environment:   env,
		StableFiles:   len(stab.StableFiles),
		UnstableFiles: stab.SortedUnstableFiles(),
		StableTests:   len(stab.StableNodes),
		UnstableTests: len(stab.UnstableNodes),
		LibrariesMiss: stab.LibrariesMiss,
	}, nil
}
