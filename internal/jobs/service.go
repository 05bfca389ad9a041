// Package jobs implements the asynchronous external-job proxy: submitted
// work is either delegated to a configured provider or simulated with
// deterministic progress, and every observer (poll, webhook, cancel) writes
// through the same job store.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/media"
	"server/internal/providers"
	"server/internal/storage"
)

// ArtifactFetcher downloads a finished artifact from a provider result URL.
// Providers that expose result URLs (D-ID) implement it next to Client.
type ArtifactFetcher interface {
	FetchResult(ctx context.Context, resultURL string) ([]byte, error)
}

// Service orchestrates job submission, polling, cancellation and webhook
// ingestion over a shared store.
type Service struct {
	store     domain.JobStore
	clients   map[domain.JobKind]providers.Client
	output    *storage.FileStore
	uploads   *storage.FileStore
	extractor *media.Extractor
	logger    infra.Logger
	timeout   time.Duration
}

// Options wires the service dependencies. Extractor may be nil when ffmpeg
// is not installed; the matching kind then runs simulated.
type Options struct {
	Store     domain.JobStore
	Output    *storage.FileStore
	Uploads   *storage.FileStore
	Extractor *media.Extractor
	Logger    infra.Logger
	Timeout   time.Duration
}

// NewService constructs the orchestrator. Providers are attached afterwards
// via Register.
func NewService(opts Options) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		store:     opts.Store,
		clients:   make(map[domain.JobKind]providers.Client),
		output:    opts.Output,
		uploads:   opts.Uploads,
		extractor: opts.Extractor,
		logger:    opts.Logger,
		timeout:   timeout,
	}
}

// Register attaches a provider client for its kind. Unregistered or
// unconfigured kinds run simulated.
func (s *Service) Register(client providers.Client) {
	s.clients[client.Kind()] = client
}

// Submit validates the request, hands it to the configured provider when one
// exists and persists the resulting job. Provider failures at this stage
// degrade into a simulated job carrying the failure as an advisory
// fallback reason; the caller still gets a job it can poll.
func (s *Service) Submit(ctx context.Context, kind domain.JobKind, params map[string]string) (*domain.Job, error) {
	if !domain.ValidKind(kind) {
		return nil, fmt.Errorf("%w: unknown job kind %q", domain.ErrValidation, kind)
	}
	if err := s.validateParams(kind, params); err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:       uuid.NewString(),
		Kind:     kind,
		Status:   domain.JobStatusProcessing,
		Progress: 0,
		Params:   params,
	}

	switch {
	case kind == domain.JobKindAudioExtraction:
		s.startExtraction(ctx, job)
	default:
		s.startProvider(ctx, job)
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}
	return job, nil
}

// Poll returns the current snapshot of a job, advancing it first: real jobs
// query the provider's status endpoint, simulated jobs advance their
// deterministic progress. Terminal jobs are returned as-is without any side
// effect, so repeated polls after completion never re-fetch the artifact.
func (s *Service) Poll(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	client := s.clients[job.Kind]
	if job.ProviderRef != "" && client != nil && client.Configured() {
		return s.pollProvider(ctx, job, client)
	}
	return s.advanceSimulated(ctx, job.ID)
}

// Cancel marks a processing job as terminally failed with a cancellation
// reason. Cancelling a terminal job is rejected.
func (s *Service) Cancel(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.store.Update(ctx, jobID, func(j *domain.Job) error {
		if j.Status.Terminal() {
			return domain.ErrJobTerminal
		}
		j.Fail("canceled at caller request")
		return nil
	})
}

// WebhookNotice is the out-of-band completion payload pushed by a provider.
type WebhookNotice struct {
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
	Error     any    `json:"error"`
}

// HandleWebhook applies a provider push notification to the same job record
// a poll would update, so a subsequent poll reflects the webhook's outcome
// without re-querying the provider.
func (s *Service) HandleWebhook(ctx context.Context, jobID string, payload []byte) (*domain.Job, error) {
	var notice WebhookNotice
	if err := json.Unmarshal(payload, &notice); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook payload", domain.ErrValidation)
	}

	switch notice.Status {
	case "done", "ready", "completed":
		job, err := s.store.GetByID(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		result := s.fetchProviderArtifact(ctx, job, notice.ResultURL)
		return s.store.Update(ctx, jobID, func(j *domain.Job) error {
			if j.Status.Terminal() {
				return nil
			}
			j.Complete(result)
			return nil
		})
	case "error", "rejected":
		message := webhookErrorMessage(notice)
		return s.store.Update(ctx, jobID, func(j *domain.Job) error {
			if j.Status.Terminal() {
				return nil
			}
			j.Fail(message)
			return nil
		})
	default:
		s.logger.Warn().Str("job_id", jobID).Str("status", notice.Status).Msg("jobs: ignoring webhook with unknown status")
		return s.store.GetByID(ctx, jobID)
	}
}

func (s *Service) startProvider(ctx context.Context, job *domain.Job) {
	client := s.clients[job.Kind]
	if client == nil || !client.Configured() {
		job.Simulated = true
		return
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := client.Start(cctx, job)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", string(job.Kind)).Msg("jobs: provider start failed, falling back to simulation")
		job.Simulated = true
		job.FallbackReason = err.Error()
		return
	}
	if res.Artifact != nil {
		result, perr := s.persistArtifact(ctx, job, res.Artifact)
		if perr != nil {
			s.logger.Error().Err(perr).Str("job_id", job.ID).Msg("jobs: persist artifact failed, falling back to simulation")
			job.Simulated = true
			job.FallbackReason = perr.Error()
			return
		}
		job.Complete(result)
		return
	}
	job.ProviderRef = res.ProviderRef
}

func (s *Service) startExtraction(ctx context.Context, job *domain.Job) {
	if s.extractor == nil || !s.extractor.Available() {
		job.Simulated = true
		return
	}

	videoName := job.Params["video_filename"]
	audioName := audioNameFor(videoName)
	videoPath, err := s.uploads.Path(videoName)
	if err == nil {
		var audioPath string
		if audioPath, err = s.output.Path(audioName); err == nil {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			err = s.extractor.ExtractAudio(cctx, videoPath, audioPath)
		}
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("jobs: audio extraction failed, falling back to simulation")
		job.Simulated = true
		job.FallbackReason = err.Error()
		return
	}
	job.Complete(map[string]string{
		"filename": audioName,
		"url":      "/output/" + audioName,
	})
}

func (s *Service) pollProvider(ctx context.Context, job *domain.Job, client providers.Client) (*domain.Job, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status, err := client.Status(cctx, job.ProviderRef)
	if err != nil {
		if msg, ok := providers.IsLogicError(err); ok {
			return s.store.Update(ctx, job.ID, func(j *domain.Job) error {
				if j.Status.Terminal() {
					return nil
				}
				j.Fail(msg)
				return nil
			})
		}
		// Transport error: transient, keep the job untouched and let the
		// caller poll again.
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("jobs: provider status check failed")
		return job, nil
	}

	switch status.State {
	case providers.StateCompleted:
		result := s.fetchProviderArtifact(ctx, job, status.ResultURL)
		return s.store.Update(ctx, job.ID, func(j *domain.Job) error {
			if j.Status.Terminal() {
				return nil
			}
			j.Complete(result)
			return nil
		})
	case providers.StateError:
		return s.store.Update(ctx, job.ID, func(j *domain.Job) error {
			if j.Status.Terminal() {
				return nil
			}
			j.Fail(status.Message)
			return nil
		})
	default:
		return s.store.Update(ctx, job.ID, func(j *domain.Job) error {
			if j.Status.Terminal() {
				return nil
			}
			j.Advance(status.Progress)
			return nil
		})
	}
}

func (s *Service) advanceSimulated(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.store.Update(ctx, jobID, func(j *domain.Job) error {
		if j.Status.Terminal() {
			return nil
		}
		next, done := nextProgress(j)
		if !done {
			j.Advance(next)
			return nil
		}
		result, err := s.materializeSimulated(ctx, j)
		if err != nil {
			return err
		}
		j.Complete(result)
		return nil
	})
}

// fetchProviderArtifact downloads the finished artifact and persists it
// under the job's output name. The write is if-absent, so a webhook and a
// poll racing to completion persist the file once. A failed download leaves
// the remote url in the result instead of blocking completion.
func (s *Service) fetchProviderArtifact(ctx context.Context, job *domain.Job, resultURL string) map[string]string {
	filename := fmt.Sprintf("avatar_%s.mp4", job.ID)
	if resultURL != "" && !s.output.Exists(filename) {
		if fetcher, ok := s.clients[job.Kind].(ArtifactFetcher); ok {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			data, err := fetcher.FetchResult(cctx, resultURL)
			if err != nil {
				s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("jobs: result fetch failed, recording url only")
			} else if _, err := s.output.WriteIfAbsent(ctx, filename, data); err != nil {
				s.logger.Error().Err(err).Str("job_id", job.ID).Msg("jobs: persist fetched artifact failed")
			}
		}
	}

	result := map[string]string{
		"output_filename": filename,
		"output_url":      "/output/" + filename,
	}
	if resultURL != "" {
		result["result_url"] = resultURL
	}
	return result
}

func (s *Service) persistArtifact(ctx context.Context, job *domain.Job, artifact *providers.Artifact) (map[string]string, error) {
	switch job.Kind {
	case domain.JobKindSpeechSynthesis:
		filename := fmt.Sprintf("speech_%s.mp3", job.ID)
		if _, err := s.output.Write(ctx, filename, artifact.Data); err != nil {
			return nil, err
		}
		return map[string]string{
			"filename": filename,
			"url":      "/output/" + filename,
			"voice_id": job.Params["voice_id"],
		}, nil

	case domain.JobKindVideoDownload:
		filename := fmt.Sprintf("tiktok_%s.mp4", job.ID)
		if _, err := s.uploads.Write(ctx, filename, artifact.Data); err != nil {
			return nil, err
		}
		result := map[string]string{
			"filename":     filename,
			"path":         "/uploads/" + filename,
			"file_size_mb": fmt.Sprintf("%.2f", float64(len(artifact.Data))/(1024*1024)),
		}
		for k, v := range artifact.Metadata {
			result[k] = v
		}
		return result, nil

	case domain.JobKindTranscription:
		return artifact.Metadata, nil

	default:
		return nil, fmt.Errorf("no artifact handling for kind %q", job.Kind)
	}
}

// materializeSimulated produces the placeholder result a simulated job
// completes with: an empty artifact file where the real provider would have
// written one, or canned content for transcription.
func (s *Service) materializeSimulated(ctx context.Context, job *domain.Job) (map[string]string, error) {
	switch job.Kind {
	case domain.JobKindAvatarGeneration:
		filename := fmt.Sprintf("avatar_%s.mp4", job.ID)
		if _, err := s.output.WriteIfAbsent(ctx, filename, nil); err != nil {
			return nil, err
		}
		return map[string]string{
			"output_filename": filename,
			"output_url":      "/output/" + filename,
		}, nil

	case domain.JobKindSpeechSynthesis:
		filename := fmt.Sprintf("speech_%s.mp3", job.ID)
		if _, err := s.output.WriteIfAbsent(ctx, filename, nil); err != nil {
			return nil, err
		}
		return map[string]string{
			"filename": filename,
			"url":      "/output/" + filename,
			"voice_id": job.Params["voice_id"],
		}, nil

	case domain.JobKindTranscription:
		return map[string]string{
			"text":     simulatedTranscriptText,
			"segments": simulatedTranscriptSegments,
			"language": "fr",
		}, nil

	case domain.JobKindVideoDownload:
		filename := fmt.Sprintf("tiktok_%s.mp4", job.ID)
		if _, err := s.uploads.WriteIfAbsent(ctx, filename, nil); err != nil {
			return nil, err
		}
		return map[string]string{
			"filename":   filename,
			"path":       "/uploads/" + filename,
			"title":      "TikTok Video",
			"author":     "Unknown",
			"duration":   "30",
			"resolution": "1080x1920",
		}, nil

	case domain.JobKindAudioExtraction:
		filename := audioNameFor(job.Params["video_filename"])
		if _, err := s.output.WriteIfAbsent(ctx, filename, nil); err != nil {
			return nil, err
		}
		return map[string]string{
			"filename": filename,
			"url":      "/output/" + filename,
		}, nil

	case domain.JobKindVideoExport:
		filename := fmt.Sprintf("export_%s.mp4", job.ID)
		if _, err := s.output.WriteIfAbsent(ctx, filename, nil); err != nil {
			return nil, err
		}
		return map[string]string{
			"filename": filename,
			"url":      "/output/" + filename,
		}, nil
	}
	return nil, fmt.Errorf("no simulation for kind %q", job.Kind)
}

func (s *Service) validateParams(kind domain.JobKind, params map[string]string) error {
	missing := func(keys ...string) error {
		for _, key := range keys {
			if strings.TrimSpace(params[key]) == "" {
				return fmt.Errorf("%w: %s is required", domain.ErrValidation, strings.Join(keys, " and "))
			}
		}
		return nil
	}

	switch kind {
	case domain.JobKindAvatarGeneration:
		return missing("avatar_id", "audio_url")
	case domain.JobKindSpeechSynthesis:
		return missing("text", "voice_id")
	case domain.JobKindTranscription:
		if err := missing("audio_filename"); err != nil {
			return err
		}
		if !s.output.Exists(params["audio_filename"]) {
			return fmt.Errorf("%w: audio file %q", domain.ErrNotFound, params["audio_filename"])
		}
		return nil
	case domain.JobKindVideoDownload:
		return missing("url")
	case domain.JobKindAudioExtraction:
		if err := missing("video_filename"); err != nil {
			return err
		}
		if !s.uploads.Exists(params["video_filename"]) {
			return fmt.Errorf("%w: video file %q", domain.ErrNotFound, params["video_filename"])
		}
		return nil
	case domain.JobKindVideoExport:
		return missing("project_id", "avatar_generation_id")
	}
	return nil
}

func audioNameFor(videoFilename string) string {
	stem := strings.TrimSuffix(videoFilename, filepath.Ext(videoFilename))
	return stem + "_audio.mp3"
}

func webhookErrorMessage(notice WebhookNotice) string {
	switch v := notice.Error.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		if msg, ok := v["description"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return "generation failed"
}
