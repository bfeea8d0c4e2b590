package models

import "time"

// Overall run status constants
const (
	RunPass      = "pass"      // Every hard-blocking phase passed
	RunFail      = "fail"      // A hard-blocking phase failed or exhausted its budget
	RunCancelled = "cancelled" // The run was stopped by a cancellation signal
)

// RunReport is the aggregate record of a completed orchestration run.
// It is the sole surface for failure detail; there is no interactive
// error recovery anywhere in the system.
type RunReport struct {
	RunID         string        // Unique run identifier
	SpecFile      string        // Feature spec file the run was started from
	Phases        []Phase       // Final phase states in execution order
	OverallStatus string        // "pass", "fail", or "cancelled"
	OpenIssues    []string      // Unresolved issues from non-blocking exhaustion and gate failures
	StartedAt     time.Time     // Run start time
	Duration      time.Duration // Total run time
}

// Passed reports whether the run completed with overall status pass.
func (r *RunReport) Passed() bool {
	return r.OverallStatus == RunPass
}

// IterationsUsed returns the total work-unit attempts consumed across all
// executed phases.
func (r *RunReport) IterationsUsed() int {
	total := 0
	for _, p := range r.Phases {
		if p.Executed {
			total += p.Loop.Iterations
		}
	}
	return total
}
