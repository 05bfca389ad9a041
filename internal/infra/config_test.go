package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaultPublicURL(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PUBLIC_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:5000"
	if cfg.PublicURL != expected {
		t.Fatalf("PublicURL mismatch: got %q want %q", cfg.PublicURL, expected)
	}
}

func TestLoadConfigInheritsPortInPublicURL(t *testing.T) {
	t.Setenv("PORT", "1919")
	t.Setenv("PUBLIC_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919"
	if cfg.PublicURL != expected {
		t.Fatalf("PublicURL mismatch: got %q want %q", cfg.PublicURL, expected)
	}
}

func TestLoadConfigTrimsPublicURLTrailingSlash(t *testing.T) {
	t.Setenv("PUBLIC_URL", "https://clips.example.com/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicURL != "https://clips.example.com" {
		t.Fatalf("PublicURL mismatch: got %q", cfg.PublicURL)
	}
}

func TestLoadConfigProviderTimeoutOverride(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT_SECONDS", "7")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ProviderTimeout != 7*time.Second {
		t.Fatalf("ProviderTimeout mismatch: got %v", cfg.ProviderTimeout)
	}
}

func TestLoadConfigSplitsAllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, http://localhost:4028 ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://app.example.com", "http://localhost:4028"}
	if len(cfg.AllowedOrigins) != len(expected) {
		t.Fatalf("AllowedOrigins mismatch: got %#v want %#v", cfg.AllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.AllowedOrigins[i] != origin {
			t.Fatalf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], origin)
		}
	}
}
