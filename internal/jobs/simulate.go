package jobs

import (
	"hash/fnv"

	"server/internal/domain"
)

// Simulated jobs advance by a fixed per-job step on every poll instead of
// re-rolling a random value, so two consecutive polls never disagree and a
// job always finishes within six polls.
const (
	simulateStepMin  = 17
	simulateStepSpan = 13
)

// simulateStep derives the deterministic progress increment for a job id.
func simulateStep(jobID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jobID))
	return simulateStepMin + int(h.Sum32()%simulateStepSpan)
}

// nextProgress returns the progress a simulated job reports on its next poll
// and whether that poll completes it.
func nextProgress(job *domain.Job) (int, bool) {
	next := job.Progress + simulateStep(job.ID)
	if next >= 100 {
		return 100, true
	}
	return next, false
}

// Canned transcript served by simulated transcription jobs, matching the
// demo copy the frontend expects.
var simulatedTranscriptSegments = `[{"text":"Salut tout le monde ! Aujourd'hui je vais vous parler de...","start":0,"end":3.5},{"text":"Comment j'ai augmenté ma productivité de 200% en un mois.","start":3.5,"end":7.2},{"text":"C'est vraiment incroyable et je vais vous montrer comment faire.","start":7.2,"end":11}]`

const simulatedTranscriptText = "Salut tout le monde ! Aujourd'hui je vais vous parler de... " +
	"Comment j'ai augmenté ma productivité de 200% en un mois. " +
	"C'est vraiment incroyable et je vais vous montrer comment faire."
