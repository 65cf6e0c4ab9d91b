package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siftlabs/sift/internal/store"
)

// NewGCCommand creates the gc command.
func NewGCCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove fingerprints no recorded test references",
		Long: `Delete orphaned fingerprint rows from the database. Distributed
workers suppress this cleanup at the end of their runs, so a shared
database accumulates orphans until someone runs gc.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGC(rootOpts, cmd)
		},
	}
	return cmd
}

func runGC(opts *RootOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	dbPath, env, err := opts.resolveReadOnly()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	st, err := store.Open(dbPath, env)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.RemoveUnusedFingerprints(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "fingerprint cleanup failed", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "unused fingerprints removed")
	return nil
}
