package models

import "fmt"

// Phase kind constants
const (
	KindSingleShot = "single_shot" // One work-unit invocation, no retry budget
	KindRetryLoop  = "retry_loop"  // Bounded retry loop with a hard iteration cap
)

// Loop status constants
const (
	LoopRunning   = "running"   // Loop has budget remaining and no success yet
	LoopPassed    = "passed"    // A work unit succeeded; terminal
	LoopExhausted = "exhausted" // Budget consumed without success; terminal
)

// PhaseInterrupted is the rendered status of an executed phase whose
// loop never reached a terminal state: the run was cancelled mid-loop.
const PhaseInterrupted = "interrupted"

// PhaseSpec is the configuration record for one phase of a run.
type PhaseSpec struct {
	Name          string `yaml:"name"`           // Phase name, unique within the run
	Kind          string `yaml:"kind"`           // "single_shot" or "retry_loop"
	MaxIterations int    `yaml:"max_iterations"` // Retry budget; required > 0 for retry_loop
	HardBlocking  bool   `yaml:"hard_blocking"`  // Exhaustion aborts all subsequent phases
}

// Validate checks the phase spec for configuration errors. A retry loop
// with a zero budget is rejected here, before any work unit runs, rather
// than silently degrading into a no-op phase.
func (s *PhaseSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("phase name is required")
	}
	switch s.Kind {
	case KindSingleShot:
	case KindRetryLoop:
		if s.MaxIterations <= 0 {
			return fmt.Errorf("phase %q: max_iterations must be > 0 for retry_loop, got %d", s.Name, s.MaxIterations)
		}
	default:
		return fmt.Errorf("phase %q: invalid kind %q, must be %q or %q", s.Name, s.Kind, KindSingleShot, KindRetryLoop)
	}
	return nil
}

// LoopState tracks the progress of a bounded retry loop.
// Invariant: Iterations never exceeds MaxIterations, and Status only
// moves running -> passed or running -> exhausted, both terminal.
type LoopState struct {
	Iterations    int    // Attempts consumed so far
	MaxIterations int    // Hard cap on attempts
	Status        string // "running", "passed", or "exhausted"
}

// Terminal reports whether the loop has reached a terminal status.
func (ls LoopState) Terminal() bool {
	return ls.Status == LoopPassed || ls.Status == LoopExhausted
}

// Phase captures the final state of one executed phase. The sequencer
// exclusively owns these records; nothing outside it mutates them.
type Phase struct {
	Spec     PhaseSpec // Configuration this phase ran under
	Loop     LoopState // Terminal loop state (single shots use MaxIterations 1)
	Outcomes []Outcome // All work-unit outcomes, ordered by attempt
	Executed bool      // False when a prior hard-blocking failure skipped this phase
}

// Passed reports whether the phase reached a passing terminal state.
func (p Phase) Passed() bool {
	return p.Executed && p.Loop.Status == LoopPassed
}

// StatusLabel returns the loop status as rendered in reports and logs,
// mapping a non-terminal executed phase to PhaseInterrupted.
func (p Phase) StatusLabel() string {
	if p.Executed && !p.Loop.Terminal() {
		return PhaseInterrupted
	}
	return p.Loop.Status
}

// LastFailure returns the diagnostics of the most recent failure outcome,
// or empty string when the phase never failed.
func (p Phase) LastFailure() string {
	for i := len(p.Outcomes) - 1; i >= 0; i-- {
		if !p.Outcomes[i].Succeeded() {
			return p.Outcomes[i].Diagnostics
		}
	}
	return ""
}
