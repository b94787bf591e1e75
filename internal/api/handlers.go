package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"genq/internal/metrics"
	"genq/internal/queue"
)

type generateRequest struct {
	JobType string         `json:"job_type"`
	Payload map[string]any `json:"payload"`
}

// handleGenerate enqueues a generation job and returns immediately with
// the id to poll.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.JobType == "" {
		http.Error(w, "missing job_type", http.StatusBadRequest)
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payload["job_type"] = req.JobType

	id, err := s.jobs.Enqueue(r.Context(), s.cfg.QueueName, payload)
	if err != nil {
		log.Error().Err(err).Str("jobType", req.JobType).Msg("failed to enqueue the job")
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}
	metrics.JobsSubmittedTotal.WithLabelValues(s.cfg.QueueName).Inc()
	log.Info().Str("jobId", id).Str("jobType", req.JobType).Msg("job enqueued")

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     id,
		"status":     queue.StatusPending,
		"status_url": "/v1/jobs/" + id,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	env, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("jobId", id).Msg("failed to read the job")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	if env == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// handleUpload stores the request body as an ephemeral object and arms
// its deletion timer. The response tells the caller how long the object
// will live.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	key := fmt.Sprintf("uploads/%s/%s", time.Now().UTC().Format("2006/01/02"), uuid.NewString())
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := s.objects.Put(r.Context(), key, body, contentType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to store the upload")
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}
	s.uploads.ScheduleDeletion(key, s.cfg.EphemeralTTL)

	writeJSON(w, http.StatusCreated, map[string]any{
		"key":                key,
		"deletes_in_seconds": int(s.cfg.EphemeralTTL.Seconds()),
	})
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.uploads.DeleteNow(r.Context(), key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to delete the upload")
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
