// Package tiktok wraps the RapidAPI TikTok downloader: one call resolves a
// share URL into a watermark-free media URL, a second fetch retrieves the
// media itself.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
)

// Options configures the downloader client.
type Options struct {
	APIKey     string
	APIHost    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs HTTP calls to the RapidAPI TikTok downloader.
type Client struct {
	apiKey     string
	apiHost    string
	httpClient *http.Client
	logger     *infra.Logger
}

type resolveResponse struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Duration any      `json:"duration"`
	Video    []string `json:"video"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		apiHost:    strings.TrimSpace(opts.APIHost),
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

func (c *Client) Kind() domain.JobKind { return domain.JobKindVideoDownload }

func (c *Client) Configured() bool { return c != nil && c.apiKey != "" && c.apiHost != "" }

// Start resolves the source URL and downloads the media in one pass,
// returning the video bytes as a finished artifact.
func (c *Client) Start(ctx context.Context, job *domain.Job) (*providers.StartResult, error) {
	meta, mediaURL, err := c.resolve(ctx, job.Params["url"])
	if err != nil {
		return nil, err
	}

	data, err := c.fetchMedia(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	if c.logger != nil {
		c.logger.Info().Str("author", meta["author"]).Int("bytes", len(data)).Msg("tiktok: video downloaded")
	}
	return &providers.StartResult{
		Artifact: &providers.Artifact{
			Data:     data,
			Ext:      ".mp4",
			Metadata: meta,
		},
	}, nil
}

// Status is never called: the download completes at Start.
func (c *Client) Status(ctx context.Context, providerRef string) (*providers.Status, error) {
	return nil, providers.ErrNoStatus
}

func (c *Client) resolve(ctx context.Context, sourceURL string) (map[string]string, string, error) {
	endpoint := url.URL{
		Scheme:   "https",
		Host:     c.apiHost,
		Path:     "/vid/index",
		RawQuery: url.Values{"url": {sourceURL}}.Encode(),
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("tiktok: build request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tiktok: resolve url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, "", fmt.Errorf("tiktok: upstream status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", &providers.LogicError{Message: fmt.Sprintf("downloader rejected the url (status %d)", resp.StatusCode)}
	}

	var payload resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, "", fmt.Errorf("tiktok: decode response: %w", err)
	}
	if len(payload.Video) == 0 || payload.Video[0] == "" {
		return nil, "", &providers.LogicError{Message: "no video found for this url"}
	}

	meta := map[string]string{
		"title":      orDefault(payload.Title, "TikTok Video"),
		"author":     orDefault(payload.Author, "Unknown"),
		"duration":   durationString(payload.Duration),
		"resolution": "1080x1920",
	}
	return meta, payload.Video[0], nil
}

func (c *Client) fetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("tiktok: build media request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok: fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tiktok: fetch media: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tiktok: read media: %w", err)
	}
	return data, nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func durationString(v any) string {
	switch d := v.(type) {
	case string:
		if d != "" {
			return d
		}
	case float64:
		return strconv.Itoa(int(d))
	}
	return "30"
}

var _ providers.Client = (*Client)(nil)
