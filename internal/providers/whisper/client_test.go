package whisper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
	"server/internal/providers"
)

func TestStartUploadsMultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Fatalf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseMultipartForm(4 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Fatalf("model = %q", got)
		}
		if got := r.FormValue("language"); got != "fr" {
			t.Fatalf("language = %q", got)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Fatalf("response_format = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "tape_audio.mp3" {
			t.Fatalf("filename = %q", header.Filename)
		}
		_, _ = w.Write([]byte(`{
			"text": "Bonjour à tous",
			"language": "french",
			"segments": [
				{"text": "Bonjour", "start": 0, "end": 1.5},
				{"text": "à tous", "start": 1.5, "end": 3}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(Options{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		ReadAudio: func(name string) ([]byte, error) {
			return []byte("audio-bytes"), nil
		},
	})
	job := &domain.Job{
		ID:     "job-1",
		Kind:   domain.JobKindTranscription,
		Params: map[string]string{"audio_filename": "tape_audio.mp3"},
	}

	res, err := client.Start(context.Background(), job)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	meta := res.Artifact.Metadata
	if meta["text"] != "Bonjour à tous" {
		t.Fatalf("text = %q", meta["text"])
	}
	if meta["language"] != "french" {
		t.Fatalf("language = %q", meta["language"])
	}
	var segments []Segment
	if err := json.Unmarshal([]byte(meta["segments"]), &segments); err != nil {
		t.Fatalf("decode segments: %v", err)
	}
	if len(segments) != 2 || segments[1].Text != "à tous" {
		t.Fatalf("segments = %+v", segments)
	}
}

func TestStartSynthesizesSegmentWhenAPIOmitsThem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text": "Bonjour"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		ReadAudio: func(name string) ([]byte, error) { return []byte("a"), nil },
	})
	res, err := client.Start(context.Background(), &domain.Job{
		Params: map[string]string{"audio_filename": "x.mp3"},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	var segments []Segment
	if err := json.Unmarshal([]byte(res.Artifact.Metadata["segments"]), &segments); err != nil {
		t.Fatalf("decode segments: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "Bonjour" || segments[0].End != 30 {
		t.Fatalf("segments = %+v", segments)
	}
}

func TestStartAPIErrorIsLogicError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"audio too long"}}`))
	}))
	defer srv.Close()

	client := NewClient(Options{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		ReadAudio: func(name string) ([]byte, error) { return []byte("a"), nil },
	})
	_, err := client.Start(context.Background(), &domain.Job{
		Params: map[string]string{"audio_filename": "x.mp3"},
	})
	msg, ok := providers.IsLogicError(err)
	if !ok {
		t.Fatalf("err = %v, want LogicError", err)
	}
	if msg != "audio too long" {
		t.Fatalf("message = %q", msg)
	}
}
