package runner

import "time"

// Result holds the outcome of one attempt.
type Result struct {
	RunID     string        // unique identifier for this attempt
	ExitCode  int           // process exit code, -1 when killed by a signal
	Stderr    string        // decoded stderr, empty unless captured
	Truncated bool          // true if stderr exceeded the size cap
	TimedOut  bool          // true if the attempt hit the runner timeout
	Duration  time.Duration // wall time from launch to exit
}

// Succeeded reports whether the program exited 0 within its time budget.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0 && !r.TimedOut
}
