// Package executor contains the deterministic control core of foreman:
// the bounded retry loop, the phase sequencer, and the quality gate.
// All non-determinism lives behind the Worker seam; everything in this
// package is plain sequential control flow.
package executor

import (
	"context"

	"github.com/harrison/foreman/internal/models"
)

// Worker is the seam to the delegated, opaque worker capability.
// Implementations must be memoryless across calls and must report every
// failure mode (including timeouts) as an Outcome rather than panicking
// or hanging.
type Worker interface {
	Invoke(ctx context.Context, task models.Task) models.Outcome
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc func(ctx context.Context, task models.Task) models.Outcome

// Invoke calls f.
func (f WorkerFunc) Invoke(ctx context.Context, task models.Task) models.Outcome {
	return f(ctx, task)
}

// TaskFactory produces the task for the next loop attempt. It receives
// the previous attempt's outcome (nil on the first attempt) so a retry
// can fold the reported diagnostics into the new task description. This
// is the only channel through which attempt i+1 depends on attempt i.
type TaskFactory func(prev *models.Outcome) models.Task
