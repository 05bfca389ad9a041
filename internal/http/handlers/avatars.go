package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/catalog"
)

// ListAvatars returns the static avatar catalog.
func (a *App) ListAvatars(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"avatars": catalog.Avatars()})
}

// GetAvatar returns one avatar by id.
func (a *App) GetAvatar(w http.ResponseWriter, r *http.Request) {
	avatar, ok := catalog.AvatarByID(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found",
			localized(r.Context(), "avatar not found", "avatar non trouvé"))
		return
	}
	a.json(w, http.StatusOK, avatar)
}
