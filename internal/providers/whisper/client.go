// Package whisper wraps the OpenAI audio transcription API.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Options configures the transcription client. ReadAudio resolves an audio
// artifact name into its bytes; the jobs service injects the output file
// store's reader here so the client stays independent of disk layout.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Language   string
	ReadAudio  func(name string) ([]byte, error)
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs HTTP calls to the OpenAI transcription endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	language   string
	readAudio  func(name string) ([]byte, error)
	httpClient *http.Client
	logger     *infra.Logger
}

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Segment is one timestamped slice of the transcript.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = "whisper-1"
	}
	language := opts.Language
	if language == "" {
		language = "fr"
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		language:   language,
		readAudio:  opts.ReadAudio,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

func (c *Client) Kind() domain.JobKind { return domain.JobKindTranscription }

func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// Start uploads the job's audio file and returns the transcript as a
// finished artifact. Segments fall back to a single whole-file span when the
// API omits them.
func (c *Client) Start(ctx context.Context, job *domain.Job) (*providers.StartResult, error) {
	filename := job.Params["audio_filename"]
	if c.readAudio == nil {
		return nil, fmt.Errorf("whisper: no audio reader configured")
	}
	audio, err := c.readAudio(filename)
	if err != nil {
		return nil, fmt.Errorf("whisper: read audio %q: %w", filename, err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("whisper: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("whisper: write form: %w", err)
	}
	_ = form.WriteField("model", c.model)
	_ = form.WriteField("language", c.language)
	_ = form.WriteField("response_format", "verbose_json")
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("whisper: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, fmt.Errorf("whisper: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper: transcribe: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("whisper: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("whisper: upstream status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}

	var payload transcriptionResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("whisper: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || payload.Error != nil {
		msg := fmt.Sprintf("request rejected with status %d", resp.StatusCode)
		if payload.Error != nil && payload.Error.Message != "" {
			msg = payload.Error.Message
		}
		return nil, &providers.LogicError{Message: msg}
	}

	segments := make([]Segment, 0, len(payload.Segments))
	for _, s := range payload.Segments {
		segments = append(segments, Segment{Text: s.Text, Start: s.Start, End: s.End})
	}
	if len(segments) == 0 {
		segments = append(segments, Segment{Text: payload.Text, Start: 0, End: 30})
	}
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("whisper: encode segments: %w", err)
	}

	if c.logger != nil {
		c.logger.Info().Str("file", filename).Int("segments", len(segments)).Msg("whisper: transcription done")
	}
	return &providers.StartResult{
		Artifact: &providers.Artifact{
			Metadata: map[string]string{
				"text":     payload.Text,
				"segments": string(segmentsJSON),
				"language": orDefault(payload.Language, c.language),
			},
		},
	}, nil
}

// Status is never called: transcription completes at Start.
func (c *Client) Status(ctx context.Context, providerRef string) (*providers.Status, error) {
	return nil, providers.ErrNoStatus
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

var _ providers.Client = (*Client)(nil)
