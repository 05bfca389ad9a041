package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindAvatarGeneration JobKind = "avatar_generation"
	JobKindSpeechSynthesis  JobKind = "speech_synthesis"
	JobKindTranscription    JobKind = "transcription"
	JobKindVideoDownload    JobKind = "video_download"
	JobKindAudioExtraction  JobKind = "audio_extraction"
	JobKindVideoExport      JobKind = "video_export"
)

// ValidKind reports whether k names a known job kind.
func ValidKind(k JobKind) bool {
	switch k {
	case JobKindAvatarGeneration, JobKindSpeechSynthesis, JobKindTranscription,
		JobKindVideoDownload, JobKindAudioExtraction, JobKindVideoExport:
		return true
	}
	return false
}

// JobStatus enumerates job lifecycle states. Completed and error are
// terminal: no transition leaves them.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether s admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Job encapsulates one unit of work delegated to (or simulated on behalf of)
// an external provider.
type Job struct {
	ID          string
	Kind        JobKind
	ProviderRef string
	Status      JobStatus
	Progress    int
	Params      map[string]string
	Result      map[string]string
	Error       string

	// Simulated marks jobs running without real provider credentials.
	// FallbackReason carries the advisory message when a provider call
	// failed at submit time and the job degraded into simulation.
	Simulated      bool
	FallbackReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Complete moves the job into its completed terminal state.
func (j *Job) Complete(result map[string]string) {
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.Result = result
	j.Error = ""
}

// Fail moves the job into its error terminal state.
func (j *Job) Fail(message string) {
	j.Status = JobStatusError
	j.Result = nil
	j.Error = message
}

// Advance raises progress while keeping it monotone and below completion.
func (j *Job) Advance(progress int) {
	if progress > 99 {
		progress = 99
	}
	if progress > j.Progress {
		j.Progress = progress
	}
}
