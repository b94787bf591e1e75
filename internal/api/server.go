package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"genq/internal/config"
	"genq/internal/ephemeral"
	"genq/internal/objstore"
	"genq/internal/queue"
	"genq/internal/ratelimit"
	"genq/internal/store"
)

// Server wires the HTTP surface: job submission and polling, ephemeral
// uploads, and health probes.
type Server struct {
	cfg     config.Config
	store   store.Store
	jobs    *queue.Queue
	limiter *ratelimit.Limiter
	objects objstore.Store
	uploads *ephemeral.Scheduler
	guard   *rate.Limiter
}

func NewServer(cfg config.Config, st store.Store, jobs *queue.Queue, limiter *ratelimit.Limiter, objects objstore.Store, uploads *ephemeral.Scheduler) *Server {
	return &Server{
		cfg:     cfg,
		store:   st,
		jobs:    jobs,
		limiter: limiter,
		objects: objects,
		uploads: uploads,
		guard:   rate.NewLimiter(rate.Limit(cfg.GuardRPS), cfg.GuardBurst),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/generate", s.rateLimit(s.handleGenerate))
	mux.HandleFunc("GET /v1/jobs/{id}", s.handleJobStatus)
	mux.HandleFunc("POST /v1/uploads", s.rateLimit(s.handleUpload))
	mux.HandleFunc("DELETE /v1/uploads/{key...}", s.handleDeleteUpload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write the response")
	}
}
