package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/harrison/foreman/internal/models"
)

// scriptedWorker returns canned outcomes in order, repeating the last
// one when the script runs out. It records every task it receives.
type scriptedWorker struct {
	script []models.Outcome
	tasks  []models.Task
}

func (sw *scriptedWorker) Invoke(ctx context.Context, task models.Task) models.Outcome {
	sw.tasks = append(sw.tasks, task)
	i := len(sw.tasks) - 1
	if i >= len(sw.script) {
		i = len(sw.script) - 1
	}
	return sw.script[i]
}

func alwaysFail() *scriptedWorker {
	return &scriptedWorker{script: []models.Outcome{
		models.FailureOutcome("test_failure", "it broke", 0),
	}}
}

func failNThenPass(n int) *scriptedWorker {
	var script []models.Outcome
	for i := 0; i < n; i++ {
		script = append(script, models.FailureOutcome("test_failure", "still broken", 0))
	}
	script = append(script, models.SuccessOutcome("fixed", 0))
	return &scriptedWorker{script: script}
}

func staticFactory(desc string) TaskFactory {
	return func(prev *models.Outcome) models.Task {
		return models.Task{ID: "t", Name: "t", Description: desc}
	}
}

func TestRetryLoopFirstAttemptSuccess(t *testing.T) {
	worker := failNThenPass(0)
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	state, err := NewRetryLoop(worker).Run(context.Background(), &phase, staticFactory("run tests"), 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if state.Status != models.LoopPassed {
		t.Errorf("Status = %q, want passed", state.Status)
	}
	if state.Iterations != 1 {
		t.Errorf("Iterations = %d, want exactly 1 (no wasted retries)", state.Iterations)
	}
	if len(phase.Outcomes) != 1 {
		t.Errorf("outcomes recorded = %d, want 1", len(phase.Outcomes))
	}
}

func TestRetryLoopExhaustsAfterExactlyMaxAttempts(t *testing.T) {
	worker := alwaysFail()
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	state, err := NewRetryLoop(worker).Run(context.Background(), &phase, staticFactory("run tests"), 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if state.Status != models.LoopExhausted {
		t.Errorf("Status = %q, want exhausted", state.Status)
	}
	if state.Iterations != 5 {
		t.Errorf("Iterations = %d, want exactly max", state.Iterations)
	}
	if len(worker.tasks) != 5 {
		t.Errorf("invocations = %d, want exactly max", len(worker.tasks))
	}
}

func TestRetryLoopIterationsNeverExceedMax(t *testing.T) {
	for _, max := range []int{1, 2, 5, 10} {
		worker := alwaysFail()
		phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: max}}

		state, err := NewRetryLoop(worker).Run(context.Background(), &phase, staticFactory("run tests"), max)
		if err != nil {
			t.Fatalf("Run(max=%d) error = %v", max, err)
		}
		if state.Iterations > state.MaxIterations {
			t.Errorf("max=%d: Iterations %d exceeds MaxIterations %d", max, state.Iterations, state.MaxIterations)
		}
	}
}

func TestRetryLoopPassesOnLastAttempt(t *testing.T) {
	worker := failNThenPass(4)
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	state, err := NewRetryLoop(worker).Run(context.Background(), &phase, staticFactory("run tests"), 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if state.Status != models.LoopPassed {
		t.Errorf("Status = %q, want passed", state.Status)
	}
	if state.Iterations != 5 {
		t.Errorf("Iterations = %d, want 5", state.Iterations)
	}
}

func TestRetryLoopFactoryReceivesPreviousFailure(t *testing.T) {
	worker := failNThenPass(1)
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	var seen []*models.Outcome
	factory := func(prev *models.Outcome) models.Task {
		seen = append(seen, prev)
		return models.Task{ID: "t", Name: "t", Description: "d"}
	}

	if _, err := NewRetryLoop(worker).Run(context.Background(), &phase, factory, 5); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("factory calls = %d, want 2", len(seen))
	}
	if seen[0] != nil {
		t.Error("first attempt should receive nil previous outcome")
	}
	if seen[1] == nil || seen[1].Diagnostics != "still broken" {
		t.Errorf("second attempt should receive the first failure, got %+v", seen[1])
	}
}

func TestRetryLoopAttemptNumbering(t *testing.T) {
	worker := failNThenPass(2)
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	if _, err := NewRetryLoop(worker).Run(context.Background(), &phase, staticFactory("d"), 5); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i, task := range worker.tasks {
		if task.Attempt != i+1 {
			t.Errorf("task %d Attempt = %d, want %d", i, task.Attempt, i+1)
		}
	}
}

func TestRetryLoopZeroBudgetIsConfigError(t *testing.T) {
	worker := alwaysFail()
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop}}

	_, err := NewRetryLoop(worker).Run(context.Background(), &phase, staticFactory("d"), 0)

	if !IsConfigError(err) {
		t.Fatalf("Run(max=0) error = %v, want configuration error", err)
	}
	if len(worker.tasks) != 0 {
		t.Errorf("invocations = %d, want 0 before config validation", len(worker.tasks))
	}
}

func TestRetryLoopObservesCancellationBeforeNextIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	worker := WorkerFunc(func(ctx context.Context, task models.Task) models.Outcome {
		cancel() // cancellation arrives while an attempt is in flight
		return models.FailureOutcome("test_failure", "broken", 0)
	})
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	state, err := NewRetryLoop(worker).Run(ctx, &phase, staticFactory("d"), 5)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if state.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1 (no new attempt after cancellation)", state.Iterations)
	}
	if state.Terminal() {
		t.Errorf("Status = %q, want non-terminal running state on cancellation", state.Status)
	}
}
