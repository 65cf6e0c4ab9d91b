package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution (including all-deselected runs)
	ExitFailure      = 1 // Test failure
	ExitCommandError = 2 // Command error (invalid flags, unreadable database, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// StatusReport is the machine-readable selection preview printed by the
// status and watch commands.
type StatusReport struct {
	Environment   string   `json:"environment,omitempty"`
	StableFiles   int      `json:"stable_files"`
	UnstableFiles []string `json:"unstable_files"`
	StableTests   int      `json:"stable_tests"`
	UnstableTests int      `json:"unstable_tests"`
	LibrariesMiss bool     `json:"libraries_miss"`
}

// Print writes the report in the requested format.
func (r StatusReport) Print(w io.Writer, format string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(r)
	}

	fmt.Fprintf(w, "environment: %q\n", r.Environment)
	fmt.Fprintf(w, "stable files: %d, changed files: %d\n", r.StableFiles, len(r.UnstableFiles))
	for _, path := range r.UnstableFiles {
		fmt.Fprintf(w, "  changed: %s\n", path)
	}
	fmt.Fprintf(w, "stable tests: %d, tests to run: %d\n", r.StableTests, r.UnstableTests)
	if r.LibrariesMiss {
		fmt.Fprintln(w, "libraries upgraded: full re-check forced")
	}
	return nil
}
