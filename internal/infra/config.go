package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	PublicURL   string
	DatabaseURL string

	OutputDir  string
	UploadsDir string

	DIDAPIKey     string
	DIDBaseURL    string
	ElevenAPIKey  string
	ElevenBaseURL string
	ElevenModel   string
	RapidAPIKey   string
	RapidAPIHost  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	WhisperModel  string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ProviderTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Provider API keys are optional: an absent key switches the matching job kind
// into simulated mode instead of failing startup.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "5000"),
		PublicURL:   os.Getenv("PUBLIC_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		OutputDir:  getEnv("OUTPUT_DIR", "./output"),
		UploadsDir: getEnv("UPLOADS_DIR", "./uploads"),

		DIDAPIKey:     os.Getenv("D_ID_API_KEY"),
		DIDBaseURL:    getEnv("D_ID_BASE_URL", "https://api.d-id.com"),
		ElevenAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ElevenBaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenModel:   getEnv("ELEVENLABS_MODEL", "eleven_monolingual_v1"),
		RapidAPIKey:   os.Getenv("RAPIDAPI_KEY"),
		RapidAPIHost:  getEnv("RAPIDAPI_HOST", "tiktok-downloader-download-tiktok-videos-without-watermark.p.rapidapi.com"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		WhisperModel:  getEnv("WHISPER_MODEL", "whisper-1"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ProviderTimeout:  time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:4028,http://localhost:3000")),
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:" + cfg.Port
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
