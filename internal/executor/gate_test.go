package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/harrison/foreman/internal/models"
)

func TestQualityGateRunsAllChecksInOrder(t *testing.T) {
	var invoked []string
	worker := WorkerFunc(func(ctx context.Context, task models.Task) models.Outcome {
		invoked = append(invoked, task.Name)
		return models.SuccessOutcome("ok", 0)
	})

	gate := NewQualityGate(worker, nil)
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	issues := gate.Run(context.Background(), &phase, t.TempDir())

	want := []string{"lint-normalize", "security-review", "logging-review", "simplify"}
	if len(invoked) != len(want) {
		t.Fatalf("checks run = %v, want %v", invoked, want)
	}
	for i, name := range want {
		if invoked[i] != name {
			t.Errorf("check %d = %q, want %q", i, invoked[i], name)
		}
	}
	if len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
	if len(phase.Outcomes) != len(want) {
		t.Errorf("phase outcomes = %d, want %d", len(phase.Outcomes), len(want))
	}
}

func TestQualityGateFailureDoesNotBlockRemainingChecks(t *testing.T) {
	var invoked []string
	worker := WorkerFunc(func(ctx context.Context, task models.Task) models.Outcome {
		invoked = append(invoked, task.Name)
		if task.Name == "lint-normalize" {
			return models.FailureOutcome("lint_failed", "unresolved lint errors", 0)
		}
		return models.SuccessOutcome("ok", 0)
	})

	gate := NewQualityGate(worker, nil)
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	issues := gate.Run(context.Background(), &phase, t.TempDir())

	if len(invoked) != 4 {
		t.Errorf("checks run = %d, want all 4 despite failure", len(invoked))
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %v, want exactly one", issues)
	}
	if !strings.Contains(issues[0], "lint-normalize") {
		t.Errorf("issue = %q, want check name included", issues[0])
	}
}

func TestQualityGateChecksNeverRetried(t *testing.T) {
	calls := 0
	worker := WorkerFunc(func(ctx context.Context, task models.Task) models.Outcome {
		calls++
		return models.FailureOutcome("review_failed", "still broken", 0)
	})

	gate := NewQualityGate(worker, []GateCheck{{Name: "security-review", Description: "review"}})
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	gate.Run(context.Background(), &phase, t.TempDir())

	if calls != 1 {
		t.Errorf("check invoked %d time(s), want exactly 1 (best effort, no retry)", calls)
	}
}

func TestQualityGateStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	worker := WorkerFunc(func(ctx context.Context, task models.Task) models.Outcome {
		calls++
		cancel()
		return models.SuccessOutcome("ok", 0)
	})

	gate := NewQualityGate(worker, nil)
	phase := models.Phase{Spec: models.PhaseSpec{Name: "test", Kind: models.KindRetryLoop, MaxIterations: 5}}

	gate.Run(ctx, &phase, t.TempDir())

	if calls != 1 {
		t.Errorf("checks run after cancellation = %d, want 1", calls)
	}
}
