package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/jobs"
	"server/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	output, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("output store: %v", err)
	}
	uploads, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("uploads store: %v", err)
	}
	logger := zerolog.Nop()
	service := jobs.NewService(jobs.Options{
		Store:   jobs.NewMemoryStore(),
		Output:  output,
		Uploads: uploads,
		Logger:  logger,
	})
	app := handlers.NewApp(service, output, uploads, logger)
	cfg := &infra.Config{RateLimitPerMin: 1000}
	srv := httptest.NewServer(httpapi.NewRouter(app, cfg, logger))
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestSubmitAndPollJob(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/jobs", "application/json",
		strings.NewReader(`{"kind":"speech_synthesis","params":{"text":"bonjour","voice_id":"voice-1"}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("no job id in %v", body)
	}
	if body["status"] != "processing" {
		t.Fatalf("status = %v, want processing", body["status"])
	}
	if body["simulated"] != true {
		t.Fatalf("job without credentials should be simulated: %v", body)
	}

	// Poll until the simulated job finishes.
	var last float64
	for i := 0; i < 6; i++ {
		resp, err := http.Get(srv.URL + "/api/jobs/" + id)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		body = decodeBody(t, resp)
		progress, _ := body["progress"].(float64)
		if progress < last {
			t.Fatalf("progress went backwards: %v -> %v", last, progress)
		}
		last = progress
		if body["status"] == "completed" {
			break
		}
	}
	if body["status"] != "completed" {
		t.Fatalf("job not completed after six polls: %v", body)
	}
	result, _ := body["result"].(map[string]any)
	if result["url"] == "" {
		t.Fatalf("completed job has no artifact url: %v", result)
	}
}

func TestSubmitUnknownKind(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/jobs", "application/json",
		strings.NewReader(`{"kind":"hologram","params":{}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "bad_request" {
		t.Fatalf("error envelope = %v", body)
	}
}

func TestPollUnknownJobIs404(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/jobs/no-such-job")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "not_found" {
		t.Fatalf("error envelope = %v", body)
	}
}

func TestCancelTwiceConflicts(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/jobs", "application/json",
		strings.NewReader(`{"kind":"video_export","params":{"project_id":"p1","avatar_generation_id":"a1"}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := decodeBody(t, resp)
	id, _ := body["id"].(string)

	resp, err = http.Post(srv.URL+"/api/jobs/"+id+"/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first cancel status = %d", resp.StatusCode)
	}
	body = decodeBody(t, resp)
	if body["status"] != "error" {
		t.Fatalf("canceled job status = %v", body["status"])
	}

	resp, err = http.Post(srv.URL+"/api/jobs/"+id+"/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want 409", resp.StatusCode)
	}
}

func TestWebhookCompletesJobOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/jobs", "application/json",
		strings.NewReader(`{"kind":"avatar_generation","params":{"avatar_id":"anna-neutral","audio_url":"/output/s.mp3"}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := decodeBody(t, resp)
	id, _ := body["id"].(string)

	resp, err = http.Post(srv.URL+"/api/jobs/"+id+"/webhook", "application/json",
		strings.NewReader(`{"status":"done","result_url":"https://cdn.example.com/talk.mp4"}`))
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/jobs/" + id)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	body = decodeBody(t, resp)
	if body["status"] != "completed" {
		t.Fatalf("status after webhook = %v", body["status"])
	}
}

func TestAvatarCatalog(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/avatars")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	body := decodeBody(t, resp)
	avatars, _ := body["avatars"].([]any)
	if len(avatars) == 0 {
		t.Fatal("no avatars listed")
	}

	resp, err = http.Get(srv.URL + "/api/avatars/anna-neutral")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body = decodeBody(t, resp)
	if body["name"] != "Anna" {
		t.Fatalf("avatar = %v", body)
	}

	resp, err = http.Get(srv.URL + "/api/avatars/nobody")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown avatar status = %d, want 404", resp.StatusCode)
	}
}

func TestListVoices(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/voices")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	body := decodeBody(t, resp)
	voices, _ := body["voices"].([]any)
	if len(voices) == 0 {
		t.Fatal("no voices listed")
	}
}

func TestValidateTikTokURL(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		url   string
		valid bool
	}{
		{"https://www.tiktok.com/@user/video/123", true},
		{"https://vm.tiktok.com/ZM123/", true},
		{"tiktok.com/@user/video/123", true},
		{"https://example.com/watch", false},
	}
	for _, tc := range cases {
		resp, err := http.Post(srv.URL+"/api/tiktok/validate", "application/json",
			strings.NewReader(`{"url":"`+tc.url+`"}`))
		if err != nil {
			t.Fatalf("validate %s: %v", tc.url, err)
		}
		body := decodeBody(t, resp)
		if body["valid"] != tc.valid {
			t.Fatalf("valid(%s) = %v, want %v", tc.url, body["valid"], tc.valid)
		}
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestLocalizedErrorMessages(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/jobs/no-such-job", nil)
	req.Header.Set("X-Locale", "fr")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := decodeBody(t, resp)
	errObj, _ := body["error"].(map[string]any)
	msg, _ := errObj["message"].(string)
	if !strings.Contains(msg, "trouvé") {
		t.Fatalf("message not localized: %q", msg)
	}
}
