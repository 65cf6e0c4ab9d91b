package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/siftlabs/sift/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Root        string // project root
	Database    string // database path, relative to root
	Environment string // CUE environment expression
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sift CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sift",
		Short: "sift - incremental test selection",
		Long: "sift skips tests whose fingerprinted dependencies are unchanged\n" +
			"and re-runs only what a change could have affected.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Root, "root", ".", "project root")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database path (default .siftdata under the root)")
	cmd.PersistentFlags().StringVar(&opts.Environment, "env", "", "environment expression (CUE, evaluates to the partition key)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewGCCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// resolveDatabase resolves a database path under the project root. The
// empty path means the default database name.
func (o *RootOptions) resolveDatabase(db string) string {
	if db == "" {
		db = config.DefaultDatabase
	}
	if filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(o.Root, db)
}

// resolveReadOnly merges .sift.yaml defaults under the global flags for
// commands that open the database without full run resolution. It returns
// the resolved database path and environment partition key.
func (o *RootOptions) resolveReadOnly() (dbPath, environment string, err error) {
	fc, err := config.LoadFile(o.configFilePath())
	if err != nil {
		return "", "", err
	}
	db := o.Database
	if db == "" {
		db = fc.Database
	}
	expr := o.Environment
	if expr == "" {
		expr = fc.Environment
	}
	env, err := config.EvalEnvironment(expr)
	if err != nil {
		return "", "", err
	}
	return o.resolveDatabase(db), env, nil
}

// configFilePath is the project config file location.
func (o *RootOptions) configFilePath() string {
	return filepath.Join(o.Root, ".sift.yaml")
}
