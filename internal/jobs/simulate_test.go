package jobs

import (
	"testing"

	"server/internal/domain"
)

func TestSimulateStepIsDeterministic(t *testing.T) {
	if simulateStep("job-a") != simulateStep("job-a") {
		t.Fatal("same id produced different steps")
	}
}

func TestSimulateStepRange(t *testing.T) {
	for _, id := range []string{"a", "b", "c", "0b1e7f3c", "3f2504e0-4f89-11d3-9a0c-0305e82c3301"} {
		step := simulateStep(id)
		if step < simulateStepMin || step >= simulateStepMin+simulateStepSpan {
			t.Fatalf("step for %q = %d, out of range", id, step)
		}
	}
}

func TestNextProgressReachesCompletion(t *testing.T) {
	job := &domain.Job{ID: "job-a", Status: domain.JobStatusProcessing}
	for polls := 1; ; polls++ {
		next, done := nextProgress(job)
		if next <= job.Progress {
			t.Fatalf("progress stalled at %d", job.Progress)
		}
		if done {
			if next != 100 {
				t.Fatalf("completion progress = %d, want 100", next)
			}
			if polls > 6 {
				t.Fatalf("took %d polls to finish", polls)
			}
			return
		}
		job.Progress = next
	}
}
