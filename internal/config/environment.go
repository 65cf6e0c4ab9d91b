package config

import (
	"fmt"

	"cuelang.org/go/cue/cuecontext"

	"github.com/siftlabs/sift/internal/engine"
)

// EvalEnvironment evaluates the environment expression to the active
// partition key. The expression is CUE; it must evaluate to a concrete
// string. An empty expression selects the default partition.
//
// Examples:
//
//	`"py311"`
//	`"linux" + "-" + "amd64"`
//	`["fast", "slow"][0]`
//
// An expression that does not evaluate to a concrete string is a
// configuration error and aborts the run.
func EvalEnvironment(expr string) (string, error) {
	if expr == "" {
		return "", nil
	}

	ctx := cuecontext.New()
	v := ctx.CompileString(expr)
	if err := v.Err(); err != nil {
		return "", &engine.EngineError{
			Code:    engine.ErrCodeConfigConflict,
			Message: fmt.Sprintf("environment expression %q does not compile", expr),
			Err:     err,
		}
	}

	s, err := v.String()
	if err != nil {
		return "", &engine.EngineError{
			Code:    engine.ErrCodeConfigConflict,
			Message: fmt.Sprintf("environment expression %q is not a concrete string", expr),
			Err:     err,
		}
	}
	return s, nil
}
