package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/domain"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/jobs"
	"server/internal/media"
	"server/internal/providers/did"
	"server/internal/providers/elevenlabs"
	"server/internal/providers/tiktok"
	"server/internal/providers/whisper"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	output, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare output directory")
	}
	uploads, err := storage.NewFileStore(cfg.UploadsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare uploads directory")
	}

	ctx := context.Background()

	// Jobs live in Postgres when DATABASE_URL is set, in memory otherwise.
	store := newJobStore(ctx, cfg, logger)

	extractor, err := media.NewExtractor()
	if err != nil {
		logger.Warn().Err(err).Msg("ffmpeg not found, audio extraction runs simulated")
		extractor = nil
	}

	providerHTTP := &http.Client{Timeout: cfg.ProviderTimeout}

	service := jobs.NewService(jobs.Options{
		Store:     store,
		Output:    output,
		Uploads:   uploads,
		Extractor: extractor,
		Logger:    logger,
		Timeout:   cfg.ProviderTimeout,
	})
	service.Register(did.NewClient(did.Options{
		APIKey:     cfg.DIDAPIKey,
		BaseURL:    cfg.DIDBaseURL,
		PublicURL:  cfg.PublicURL,
		HTTPClient: providerHTTP,
		Logger:     &logger,
	}))
	service.Register(elevenlabs.NewClient(elevenlabs.Options{
		APIKey:     cfg.ElevenAPIKey,
		BaseURL:    cfg.ElevenBaseURL,
		ModelID:    cfg.ElevenModel,
		HTTPClient: providerHTTP,
		Logger:     &logger,
	}))
	service.Register(tiktok.NewClient(tiktok.Options{
		APIKey:     cfg.RapidAPIKey,
		APIHost:    cfg.RapidAPIHost,
		HTTPClient: providerHTTP,
		Logger:     &logger,
	}))
	service.Register(whisper.NewClient(whisper.Options{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.WhisperModel,
		ReadAudio:  output.Read,
		HTTPClient: providerHTTP,
		Logger:     &logger,
	}))

	app := handlers.NewApp(service, output, uploads, logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func newJobStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) domain.JobStore {
	if cfg.DatabaseURL == "" {
		logger.Info().Msg("DATABASE_URL not set, using in-memory job store")
		return jobs.NewMemoryStore()
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	if _, err := pool.Exec(ctx, jobs.Schema); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure jobs schema")
	}
	return jobs.NewPostgresStore(pool)
}
