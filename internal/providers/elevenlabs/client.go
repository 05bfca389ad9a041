// Package elevenlabs wraps the ElevenLabs text-to-speech API. Synthesis is
// synchronous: one call returns the finished audio bytes.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Options configures the ElevenLabs client.
type Options struct {
	APIKey     string
	BaseURL    string
	ModelID    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs HTTP calls to the ElevenLabs text-to-speech API.
type Client struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
	logger     *infra.Logger
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	modelID := opts.ModelID
	if modelID == "" {
		modelID = "eleven_monolingual_v1"
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		modelID:    modelID,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

func (c *Client) Kind() domain.JobKind { return domain.JobKindSpeechSynthesis }

func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// Start synthesizes speech for the job's text/voice pair and returns the
// audio bytes as a finished artifact.
func (c *Client) Start(ctx context.Context, job *domain.Job) (*providers.StartResult, error) {
	voiceID := job.Params["voice_id"]
	payload := synthesisRequest{
		Text:    job.Params["text"],
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/text-to-speech/"+voiceID, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("elevenlabs: upstream status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &providers.LogicError{Message: decodeError(resp.Body, resp.StatusCode)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if c.logger != nil {
		c.logger.Info().Str("voice_id", voiceID).Int("bytes", len(audio)).Msg("elevenlabs: audio synthesized")
	}
	return &providers.StartResult{
		Artifact: &providers.Artifact{
			Data:     audio,
			Ext:      ".mp3",
			Metadata: map[string]string{"voice_id": voiceID},
		},
	}, nil
}

// Status is never called: synthesis completes at Start.
func (c *Client) Status(ctx context.Context, providerRef string) (*providers.Status, error) {
	return nil, providers.ErrNoStatus
}

func decodeError(r io.Reader, status int) string {
	body, _ := io.ReadAll(io.LimitReader(r, 1<<16))
	var payload struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail.Message != "" {
		return payload.Detail.Message
	}
	return fmt.Sprintf("request rejected with status %d", status)
}

var _ providers.Client = (*Client)(nil)
