// Package did wraps the D-ID talks API used for avatar video generation.
package did

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
)

const (
	defaultBaseURL   = "https://api.d-id.com"
	defaultDriverURL = "bank://lively/driver-03"
	avatarCDNPattern = "https://cdn.d-id.com/avatars-web/celebrities/%s-in/image.png"
)

// Options configures the D-ID client.
type Options struct {
	APIKey     string
	BaseURL    string
	PublicURL  string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs HTTP calls to the D-ID talks API.
type Client struct {
	apiKey     string
	baseURL    string
	publicURL  string
	httpClient *http.Client
	logger     *infra.Logger
}

type createTalkRequest struct {
	SourceURL string     `json:"source_url"`
	AudioURL  string     `json:"audio_url"`
	DriverURL string     `json:"driver_url"`
	Config    talkConfig `json:"config"`
	Webhook   string     `json:"webhook,omitempty"`
}

type talkConfig struct {
	Stitch bool `json:"stitch"`
}

type talkResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
	Error     any    `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		publicURL:  strings.TrimRight(opts.PublicURL, "/"),
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

func (c *Client) Kind() domain.JobKind { return domain.JobKindAvatarGeneration }

func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// Start creates a talk for the avatar/audio pair carried by the job and
// returns the provider's talk id for subsequent polling.
func (c *Client) Start(ctx context.Context, job *domain.Job) (*providers.StartResult, error) {
	avatarID := job.Params["avatar_id"]
	audioURL := job.Params["audio_url"]

	payload := createTalkRequest{
		SourceURL: fmt.Sprintf(avatarCDNPattern, avatarBase(avatarID)),
		AudioURL:  c.absoluteURL(audioURL),
		DriverURL: defaultDriverURL,
		Config:    talkConfig{Stitch: true},
	}
	if c.publicURL != "" {
		payload.Webhook = fmt.Sprintf("%s/api/jobs/%s/webhook", c.publicURL, job.ID)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("did: encode talk request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/talks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("did: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	var talk talkResponse
	if err := c.do(req, &talk); err != nil {
		return nil, err
	}
	if talk.ID == "" {
		return nil, errors.New("did: talk response missing id")
	}
	if c.logger != nil {
		c.logger.Info().Str("talk_id", talk.ID).Str("avatar_id", avatarID).Msg("did: talk created")
	}
	return &providers.StartResult{ProviderRef: talk.ID}, nil
}

// Status polls a talk and maps the D-ID vocabulary onto canonical states:
// created is 10%, started/processing 50%, ready 100%, anything unknown 25%.
func (c *Client) Status(ctx context.Context, providerRef string) (*providers.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/talks/"+providerRef, nil)
	if err != nil {
		return nil, fmt.Errorf("did: build request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	var talk talkResponse
	if err := c.do(req, &talk); err != nil {
		return nil, err
	}

	switch talk.Status {
	case "created":
		return &providers.Status{State: providers.StateProcessing, Progress: 10}, nil
	case "started", "processing":
		return &providers.Status{State: providers.StateProcessing, Progress: 50}, nil
	case "done", "ready":
		return &providers.Status{State: providers.StateCompleted, Progress: 100, ResultURL: talk.ResultURL}, nil
	case "error", "rejected":
		return nil, &providers.LogicError{Message: talkErrorMessage(talk)}
	default:
		return &providers.Status{State: providers.StateProcessing, Progress: 25}, nil
	}
}

// FetchResult downloads the finished talk video.
func (c *Client) FetchResult(ctx context.Context, resultURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("did: build result request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("did: fetch result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("did: fetch result: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("did: read result body: %w", err)
	}
	return data, nil
}

func (c *Client) do(req *http.Request, out *talkResponse) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("did: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("did: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("did: upstream status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &providers.LogicError{Message: extractErrorMessage(body, resp.StatusCode)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("did: decode response: %w", err)
	}
	return nil
}

func avatarBase(avatarID string) string {
	if i := strings.IndexByte(avatarID, '-'); i > 0 {
		return avatarID[:i]
	}
	return avatarID
}

func talkErrorMessage(talk talkResponse) string {
	switch v := talk.Error.(type) {
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

func extractErrorMessage(body []byte, status int) string {
	var payload struct {
		Description string `json:"description"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Description != "" {
			return payload.Description
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("request rejected with status %d", status)
}

func (c *Client) absoluteURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return c.publicURL + "/" + strings.TrimLeft(raw, "/")
}

var _ providers.Client = (*Client)(nil)
