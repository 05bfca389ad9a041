package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/catalog"
	"server/internal/domain"
)

type submitJobRequest struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params"`
}

// SubmitJob accepts a generation request and returns the freshly created job.
func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request",
			localized(r.Context(), "invalid payload", "charge utile invalide"))
		return
	}
	if req.Params == nil {
		req.Params = map[string]string{}
	}

	kind := domain.JobKind(req.Kind)
	if kind == domain.JobKindAvatarGeneration {
		if _, ok := catalog.AvatarByID(req.Params["avatar_id"]); req.Params["avatar_id"] != "" && !ok {
			a.error(w, http.StatusNotFound, "not_found",
				localized(r.Context(), "avatar not found", "avatar non trouvé"))
			return
		}
	}

	job, err := a.Jobs.Submit(r.Context(), kind, req.Params)
	if err != nil {
		a.jobError(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, jobDTO(job))
}

// JobStatus polls a job and returns its current snapshot.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	job, err := a.Jobs.Poll(r.Context(), jobID)
	if err != nil {
		a.jobError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, jobDTO(job))
}

// CancelJob aborts a processing job.
func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	job, err := a.Jobs.Cancel(r.Context(), jobID)
	if err != nil {
		a.jobError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, jobDTO(job))
}

// JobWebhook ingests a provider push notification for a job.
func (a *App) JobWebhook(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable payload")
		return
	}
	job, err := a.Jobs.HandleWebhook(r.Context(), jobID, payload)
	if err != nil {
		a.jobError(w, r, err)
		return
	}
	a.Logger.Info().Str("job_id", jobID).Str("status", string(job.Status)).Msg("webhook applied")
	a.json(w, http.StatusOK, map[string]any{"success": true})
}

func (a *App) jobError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found",
			localized(r.Context(), "job or file not found", "tâche ou fichier non trouvé"))
	case errors.Is(err, domain.ErrJobTerminal):
		a.error(w, http.StatusConflict, "conflict",
			localized(r.Context(), "job already finished", "tâche déjà terminée"))
	default:
		a.Logger.Error().Err(err).Msg("job operation failed")
		a.error(w, http.StatusInternalServerError, "internal",
			localized(r.Context(), "internal error", "erreur interne"))
	}
}

func jobDTO(job *domain.Job) map[string]any {
	out := map[string]any{
		"id":         job.ID,
		"kind":       job.Kind,
		"status":     job.Status,
		"progress":   job.Progress,
		"simulated":  job.Simulated,
		"created_at": job.CreatedAt.Format(time.RFC3339),
		"updated_at": job.UpdatedAt.Format(time.RFC3339),
	}
	if job.ProviderRef != "" {
		out["provider_ref"] = job.ProviderRef
	}
	if job.Result != nil {
		out["result"] = job.Result
	}
	if job.Error != "" {
		out["error"] = job.Error
	}
	if job.FallbackReason != "" {
		out["fallback_reason"] = job.FallbackReason
	}
	return out
}
