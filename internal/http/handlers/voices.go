package handlers

import (
	"net/http"

	"server/internal/catalog"
)

// ListVoices returns the static voice catalog.
func (a *App) ListVoices(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"voices": catalog.Voices()})
}
