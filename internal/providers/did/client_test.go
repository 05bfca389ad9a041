package did

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
	"server/internal/providers"
)

func TestStartCreatesTalk(t *testing.T) {
	var got createTalkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/talks" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Basic test-key" {
			t.Fatalf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"tlk_abc","status":"created"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		PublicURL: "https://proxy.example.com",
	})
	job := &domain.Job{
		ID:   "job-1",
		Kind: domain.JobKindAvatarGeneration,
		Params: map[string]string{
			"avatar_id": "anna-neutral",
			"audio_url": "/output/speech_1.mp3",
		},
	}

	res, err := client.Start(context.Background(), job)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.ProviderRef != "tlk_abc" {
		t.Fatalf("provider ref = %q", res.ProviderRef)
	}
	if got.SourceURL != "https://cdn.d-id.com/avatars-web/celebrities/anna-in/image.png" {
		t.Fatalf("source url = %q", got.SourceURL)
	}
	if got.AudioURL != "https://proxy.example.com/output/speech_1.mp3" {
		t.Fatalf("audio url = %q", got.AudioURL)
	}
	if got.DriverURL != "bank://lively/driver-03" {
		t.Fatalf("driver url = %q", got.DriverURL)
	}
	if !got.Config.Stitch {
		t.Fatal("stitch not enabled")
	}
	if got.Webhook != "https://proxy.example.com/api/jobs/job-1/webhook" {
		t.Fatalf("webhook = %q", got.Webhook)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		state    providers.State
		progress int
		result   string
	}{
		{name: "created", body: `{"id":"t","status":"created"}`, state: providers.StateProcessing, progress: 10},
		{name: "started", body: `{"id":"t","status":"started"}`, state: providers.StateProcessing, progress: 50},
		{name: "ready", body: `{"id":"t","status":"done","result_url":"https://cdn/talk.mp4"}`, state: providers.StateCompleted, progress: 100, result: "https://cdn/talk.mp4"},
		{name: "unknown", body: `{"id":"t","status":"queued"}`, state: providers.StateProcessing, progress: 25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/talks/t" {
					t.Fatalf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
			status, err := client.Status(context.Background(), "t")
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if status.State != tc.state || status.Progress != tc.progress {
				t.Fatalf("got %q/%d, want %q/%d", status.State, status.Progress, tc.state, tc.progress)
			}
			if status.ResultURL != tc.result {
				t.Fatalf("result url = %q, want %q", status.ResultURL, tc.result)
			}
		})
	}
}

func TestStatusErrorIsLogicError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"t","status":"error","error":{"description":"face not detected"}}`))
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Status(context.Background(), "t")
	msg, ok := providers.IsLogicError(err)
	if !ok {
		t.Fatalf("err = %v, want LogicError", err)
	}
	if msg != "face not detected" {
		t.Fatalf("message = %q", msg)
	}
}

func TestRejectedRequestIsLogicError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"description":"insufficient credits"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Status(context.Background(), "t")
	msg, ok := providers.IsLogicError(err)
	if !ok {
		t.Fatalf("err = %v, want LogicError", err)
	}
	if msg != "insufficient credits" {
		t.Fatalf("message = %q", msg)
	}
}

func TestServerFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Status(context.Background(), "t")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
	if _, ok := providers.IsLogicError(err); ok {
		t.Fatalf("5xx mapped to LogicError: %v", err)
	}
}

func TestConfigured(t *testing.T) {
	if NewClient(Options{}).Configured() {
		t.Fatal("client without key reports configured")
	}
	if !NewClient(Options{APIKey: "k"}).Configured() {
		t.Fatal("client with key reports unconfigured")
	}
}
