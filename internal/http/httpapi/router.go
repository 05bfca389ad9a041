package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	appmw "server/internal/middleware"
)

// NewRouter assembles the HTTP surface: the job API, the static catalogs and
// the artifact file trees.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		appmw.RequestID,
		appmw.Logger(logger),
		chimw.Recoverer,
		appmw.CORS(cfg.AllowedOrigins),
		appmw.Locale("en"),
	)

	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(appmw.RateLimit(cfg.RateLimitPerMin, time.Minute))

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", app.SubmitJob)
			r.Get("/{id}", app.JobStatus)
			r.Post("/{id}/cancel", app.CancelJob)
			r.Post("/{id}/webhook", app.JobWebhook)
		})

		r.Route("/avatars", func(r chi.Router) {
			r.Get("/", app.ListAvatars)
			r.Get("/{id}", app.GetAvatar)
		})

		r.Get("/voices", app.ListVoices)
		r.Post("/tiktok/validate", app.ValidateTikTokURL)
		r.Get("/videos", app.ListVideos)
	})

	// Generated artifacts and downloaded sources are served directly.
	fileServer(r, "/output", app.Output.BasePath())
	fileServer(r, "/uploads", app.Uploads.BasePath())

	return r
}

func fileServer(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}
