package executor

import (
	"context"

	"github.com/harrison/foreman/internal/models"
)

// RetryLoop repeats a work unit up to a hard iteration cap, stopping
// early on the first success. Attempts are strictly sequential: each
// task may depend on the previous attempt's diagnostics, so no two
// invocations for the same loop ever overlap.
type RetryLoop struct {
	worker Worker
}

// NewRetryLoop creates a RetryLoop driving the given worker.
func NewRetryLoop(worker Worker) *RetryLoop {
	if worker == nil {
		panic("retry loop requires a worker")
	}
	return &RetryLoop{worker: worker}
}

// Run executes up to max attempts of the task produced by factory,
// appending every outcome to phase.Outcomes in attempt order. The
// returned loop state is terminal (passed or exhausted) unless ctx was
// cancelled, in which case the state keeps its running status and the
// context error is returned. Cancellation is observed at the start of
// every iteration: an in-flight invocation finishes, but no new attempt
// begins afterwards.
func (rl *RetryLoop) Run(ctx context.Context, phase *models.Phase, factory TaskFactory, max int) (models.LoopState, error) {
	state := models.LoopState{
		MaxIterations: max,
		Status:        models.LoopRunning,
	}

	if max <= 0 {
		return state, NewConfigError(phase.Spec.Name, "retry loop has no iteration budget", ErrZeroBudget)
	}

	var prev *models.Outcome
	for state.Status == models.LoopRunning && state.Iterations < state.MaxIterations {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		task := factory(prev)
		task.Attempt = state.Iterations + 1

		outcome := rl.worker.Invoke(ctx, task)
		state.Iterations++
		phase.Outcomes = append(phase.Outcomes, outcome)

		if outcome.Succeeded() {
			state.Status = models.LoopPassed
		} else {
			prev = &outcome
		}
	}

	if state.Status == models.LoopRunning {
		state.Status = models.LoopExhausted
	}

	return state, nil
}
