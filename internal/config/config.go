// Package config resolves sift's configuration surface: selection flags,
// the project config file, test-name filters, and the environment
// expression.
package config

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/siftlabs/sift/internal/engine"
)

// DefaultDatabase is the database file name, relative to the project root.
const DefaultDatabase = ".siftdata"

// Options is the raw configuration surface before resolution: CLI flags
// merged over file defaults.
type Options struct {
	// Select enables selection: deselected tests are skipped rather than
	// merely reported.
	Select bool

	// ForceSelect applies selection and Filters conjunctively.
	ForceSelect bool

	// NoSelect disables selection; everything runs, still ordered.
	NoSelect bool

	// NoCollect disables writing new fingerprints and outcomes this run.
	NoCollect bool

	// EnvironmentExpr is a CUE expression evaluating to the environment
	// partition key. Empty means the default partition.
	EnvironmentExpr string

	// Filters are test-name filter patterns (glob syntax).
	Filters []string

	// Worker marks this process as a distributed worker; end-of-run
	// fingerprint GC is suppressed for workers.
	Worker bool

	// Database is the database path; empty means DefaultDatabase under
	// the project root.
	Database string
}

// Resolved is the negotiated run configuration.
type Resolved struct {
	// Message describes forced-mode degradations for the run header.
	Message string

	// Collect is false when no new data is written this run.
	Collect bool

	// Apply is false when selection is computed but not applied (tests
	// are ordered and reported, none skipped).
	Apply bool

	Mode        engine.Mode
	Environment string
	Filters     []glob.Glob
	Worker      bool
	Database    string
}

// Resolve negotiates the three selection modes and validates the flag
// combination. Contradictory flags are a configuration error: fatal, the
// run aborts before any selection is applied.
func Resolve(opts Options) (*Resolved, error) {
	if opts.ForceSelect && opts.NoSelect {
		return nil, &engine.EngineError{
			Code:    engine.ErrCodeConfigConflict,
			Message: "force-select and no-select contradict each other",
		}
	}

	r := &Resolved{
		Collect:  !opts.NoCollect,
		Apply:    opts.Select || opts.ForceSelect,
		Mode:     engine.ModeNormal,
		Worker:   opts.Worker,
		Database: opts.Database,
	}
	if r.Database == "" {
		r.Database = DefaultDatabase
	}

	switch {
	case opts.NoSelect:
		r.Mode = engine.ModeNoSelect
		r.Apply = false
	case opts.ForceSelect:
		r.Mode = engine.ModeForceSelect
	case len(opts.Filters) > 0:
		// External filters narrow the collection; plain selection on top
		// of them would skip tests the filter meant to run. Selection is
		// deactivated unless forced.
		r.Mode = engine.ModeNoSelect
		r.Apply = false
		r.Message = "selection deactivated: test filters active (use force-select to combine), "
	}

	if opts.NoCollect {
		r.Message += "collection deactivated, "
	}

	for _, pattern := range opts.Filters {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, &engine.EngineError{
				Code:    engine.ErrCodeConfigConflict,
				Message: fmt.Sprintf("invalid filter pattern %q: %v", pattern, err),
			}
		}
		r.Filters = append(r.Filters, g)
	}

	env, err := EvalEnvironment(opts.EnvironmentExpr)
	if err != nil {
		return nil, err
	}
	r.Environment = env

	return r, nil
}

// FileConfig is the optional project config file (.sift.yaml at the
// project root). CLI flags take precedence over file values.
type FileConfig struct {
	Environment string   `yaml:"environment,omitempty"`
	Database    string   `yaml:"database,omitempty"`
	Select      bool     `yaml:"select,omitempty"`
	NoCollect   bool     `yaml:"no-collect,omitempty"`
	Filters     []string `yaml:"filters,omitempty"`
}

// LoadFile reads the project config file. A missing file is not an error;
// it yields the zero FileConfig.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fc, nil
	}
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// Merge overlays file defaults under the flag-provided options. Flags win
// wherever they were set.
func (fc FileConfig) Merge(opts Options) Options {
	if opts.EnvironmentExpr == "" {
		opts.EnvironmentExpr = fc.Environment
	}
	if opts.Database == "" {
		opts.Database = fc.Database
	}
	if !opts.Select {
		opts.Select = fc.Select
	}
	if !opts.NoCollect {
		opts.NoCollect = fc.NoCollect
	}
	if len(opts.Filters) == 0 {
		opts.Filters = fc.Filters
	}
	return opts
}
