package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/infra"
	"server/internal/jobs"
	"server/internal/storage"
)

// App is the handler container; the router mounts its methods.
type App struct {
	Jobs    *jobs.Service
	Output  *storage.FileStore
	Uploads *storage.FileStore
	Logger  infra.Logger
}

// NewApp wires the handler container.
func NewApp(service *jobs.Service, output, uploads *storage.FileStore, logger infra.Logger) *App {
	return &App{Jobs: service, Output: output, Uploads: uploads, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
