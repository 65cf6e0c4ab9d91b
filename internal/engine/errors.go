package engine

import (
	"errors"
	"fmt"
)

// EngineError represents an error detected by the selection engine.
//
// Errors fall into two classes with different propagation rules:
//   - Errors that would compromise the correctness of future selection
//     (contradictory configuration, unreadable database) are fatal and
//     abort the run before any selection is applied.
//   - Errors that only degrade performance (a trace lost for one test, a
//     single commit skipped) are absorbed locally; the affected test is
//     simply unknown next run, and unknown means must-run.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Node identifies the affected test, when the error is local to one.
	Node string

	// Path identifies the affected file, when relevant.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeConfigConflict indicates contradictory selection flags.
	ErrCodeConfigConflict ErrorCode = "CONFIG_CONFLICT"

	// ErrCodeDBUnreadable indicates the database cannot be opened or read.
	ErrCodeDBUnreadable ErrorCode = "DB_UNREADABLE"

	// ErrCodeTraceFailed indicates fingerprint collection failed for one test.
	ErrCodeTraceFailed ErrorCode = "TRACE_FAILED"

	// ErrCodeCommitFailed indicates a single node commit could not be written.
	ErrCodeCommitFailed ErrorCode = "COMMIT_FAILED"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	switch {
	case e.Node != "":
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error must abort the entire run.
func (e *EngineError) Fatal() bool {
	return e.Code == ErrCodeConfigConflict || e.Code == ErrCodeDBUnreadable
}

// IsFatal reports whether err wraps a fatal EngineError.
func IsFatal(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee) && ee.Fatal()
}
