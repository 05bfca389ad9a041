package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"
)

var tiktokURLPattern = regexp.MustCompile(`(?i)^(https?://)?(www\.|vm\.)?tiktok\.com/.+`)

type validateURLRequest struct {
	URL string `json:"url"`
}

// ValidateTikTokURL checks whether a URL looks like a TikTok video link
// without contacting the downloader API.
func (a *App) ValidateTikTokURL(w http.ResponseWriter, r *http.Request) {
	var req validateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		a.error(w, http.StatusBadRequest, "bad_request",
			localized(r.Context(), "url is required", "url est requise"))
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"url":   req.URL,
		"valid": tiktokURLPattern.MatchString(req.URL),
	})
}

type videoEntry struct {
	Filename  string  `json:"filename"`
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	CreatedAt string  `json:"created_at"`
}

// ListVideos lists downloaded videos in the uploads tree, newest first.
func (a *App) ListVideos(w http.ResponseWriter, r *http.Request) {
	infos, err := a.Uploads.List(".mp4", ".mov", ".webm")
	if err != nil {
		a.Logger.Error().Err(err).Msg("list uploads failed")
		a.error(w, http.StatusInternalServerError, "internal",
			localized(r.Context(), "internal error", "erreur interne"))
		return
	}
	videos := make([]videoEntry, 0, len(infos))
	for _, info := range infos {
		videos = append(videos, videoEntry{
			Filename:  info.Name,
			Path:      "/uploads/" + info.Name,
			SizeMB:    float64(info.Size) / (1024 * 1024),
			CreatedAt: info.CreatedAt.Format(time.RFC3339),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"videos": videos})
}
