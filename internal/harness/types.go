package harness

// RunTrace captures the observable outcome of one run within a scenario.
type RunTrace struct {
	// Header is the run's summary line.
	Header string `json:"header"`

	// Executed lists the test ids actually run, in execution order.
	Executed []string `json:"executed"`

	Deselected int `json:"deselected"`
	Failed     int `json:"failed"`
	Pruned     int `json:"pruned"`
	Exit       int `json:"exit"`
}

// Result aggregates the traces of every run in a scenario plus any
// expectation failures.
type Result struct {
	Runs   []RunTrace
	Errors []string
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{}
}

// AddError records an expectation failure.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}
