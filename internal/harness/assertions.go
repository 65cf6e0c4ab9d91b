package harness

import (
	"fmt"
	"strings"
)

// EvaluateExpect checks one run's trace against its expect clause and
// returns a message per failed expectation. A nil clause checks nothing.
func EvaluateExpect(runIndex int, trc RunTrace, expect *ExpectClause) []string {
	if expect == nil {
		return nil
	}

	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("run %d: %s", runIndex, fmt.Sprintf(format, args...)))
	}

	if expect.Executed != nil && !sameOrder(expect.Executed, trc.Executed) {
		fail("executed [%s], expected [%s]",
			strings.Join(trc.Executed, ", "), strings.Join(expect.Executed, ", "))
	}
	if expect.Deselected != nil && trc.Deselected != *expect.Deselected {
		fail("deselected %d, expected %d", trc.Deselected, *expect.Deselected)
	}
	if expect.Failed != nil && trc.Failed != *expect.Failed {
		fail("failed %d, expected %d", trc.Failed, *expect.Failed)
	}
	if expect.Pruned != nil && trc.Pruned != *expect.Pruned {
		fail("pruned %d, expected %d", trc.Pruned, *expect.Pruned)
	}
	if expect.Exit != nil && trc.Exit != *expect.Exit {
		fail("exit %d, expected %d", trc.Exit, *expect.Exit)
	}
	return errs
}

func sameOrder(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}
