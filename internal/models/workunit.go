package models

import (
	"errors"
	"time"
)

// Outcome status constants
const (
	OutcomeSuccess = "success" // Work unit completed successfully
	OutcomeFailure = "failure" // Work unit reported failure or timed out
)

// ReasonTimeout is the failure reason recorded when a work unit exceeds
// its invocation deadline.
const ReasonTimeout = "timeout"

// Task describes a single unit of work handed to the delegated worker.
// Tasks are immutable once built; the retry loop constructs a fresh Task
// for every attempt rather than mutating the previous one.
type Task struct {
	ID          string                 // Unique task identifier
	Name        string                 // Short human-readable name
	Description string                 // Full work description passed to the worker
	Workspace   string                 // Target context (project root) the worker operates on
	Agent       string                 // Delegated agent to use (optional)
	Attempt     int                    // 1-indexed attempt number within the owning loop
	Metadata    map[string]interface{} // Additional data for factories and hooks
}

// Validate checks if the task has all required fields
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Name == "" {
		return errors.New("task name is required")
	}
	if t.Description == "" {
		return errors.New("task description is required")
	}
	return nil
}

// Outcome is the result of one work-unit invocation. It is created once
// by the worker seam and never mutated afterwards.
type Outcome struct {
	Status      string        // "success" or "failure"
	ArtifactRef string        // Reference to the produced artifact (success only)
	Reason      string        // Short failure classification (failure only)
	Diagnostics string        // Worker-reported detail, fed into the next attempt's task
	Duration    time.Duration // Wall time consumed by the invocation
}

// Succeeded reports whether the outcome is a success.
func (o Outcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// SuccessOutcome builds a success outcome referencing the produced artifact.
func SuccessOutcome(artifactRef string, duration time.Duration) Outcome {
	return Outcome{
		Status:      OutcomeSuccess,
		ArtifactRef: artifactRef,
		Duration:    duration,
	}
}

// FailureOutcome builds a failure outcome with a reason and diagnostics.
func FailureOutcome(reason, diagnostics string, duration time.Duration) Outcome {
	return Outcome{
		Status:      OutcomeFailure,
		Reason:      reason,
		Diagnostics: diagnostics,
		Duration:    duration,
	}
}

// TimeoutOutcome builds the synthetic failure recorded when an invocation
// exceeds its deadline. The hung invocation itself is abandoned; the loop
// keeps its termination guarantee by treating the overrun as a failure.
func TimeoutOutcome(duration time.Duration) Outcome {
	return Outcome{
		Status:      OutcomeFailure,
		Reason:      ReasonTimeout,
		Diagnostics: "work unit did not complete within the configured deadline",
		Duration:    duration,
	}
}
