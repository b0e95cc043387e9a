// Package api exposes the HTTP interface for the ad-copy pipeline service.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/copyforge/rsa-writer/internal/service"
)

// Server wires HTTP handlers to the pipeline service.
type Server struct {
	router  chi.Router
	svc     *service.Service
	logger  *zap.Logger
	authKey string
}

// Options control optional server behavior.
type Options struct {
	AuthEnabled bool
	APIKey      string
	Timeout     time.Duration
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc *service.Service, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	s := &Server{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(opts.Timeout))
	if opts.AuthEnabled {
		s.authKey = opts.APIKey
		r.Use(apiKeyMiddleware(opts.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.submitBatch)
			r.Route("/{project_id}", func(r chi.Router) {
				r.Get("/", s.getProject)
				r.Post("/copy", s.generateAllCopy)
				r.Post("/copy/url", s.generateSingleCopy)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitBatchRequest struct {
	OwnerID string `json:"owner_id"`
	URLs    string `json:"urls"`
	Label   string `json:"label"`
}

func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	res := s.svc.SubmitBatch(r.Context(), req.OwnerID, req.URLs, req.Label)
	writeResult(w, res.OK, http.StatusBadRequest, res)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	res := s.svc.GetProject(r.Context(), chi.URLParam(r, "project_id"))
	writeResult(w, res.OK, http.StatusNotFound, res)
}

func (s *Server) generateAllCopy(w http.ResponseWriter, r *http.Request) {
	res := s.svc.GenerateAllCopy(r.Context(), chi.URLParam(r, "project_id"))
	writeResult(w, res.OK, http.StatusBadRequest, res)
}

type singleCopyRequest struct {
	URL string `json:"url"`
}

func (s *Server) generateSingleCopy(w http.ResponseWriter, r *http.Request) {
	var req singleCopyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	res := s.svc.GenerateSingleCopy(r.Context(), chi.URLParam(r, "project_id"), req.URL)
	writeResult(w, res.OK, http.StatusBadRequest, res)
}

func writeResult(w http.ResponseWriter, ok bool, failureStatus int, body any) {
	status := http.StatusOK
	if !ok {
		status = failureStatus
	}
	writeJSON(w, status, body)
}
