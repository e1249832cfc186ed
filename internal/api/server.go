// Package api provides the REST API for learning, matching, describing, and
// snapshotting named pattern trie detectors.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fidde/patterntrie/internal/anomaly"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxLearnBodyBytes = 10 << 20 // 10MiB of newline-delimited samples per request

// Server is the REST API server.
type Server struct {
	detectors *anomaly.Registry
	router    *chi.Mux
	server    *http.Server
}

// NewServer builds the API server, wiring every route to detectors.
func NewServer(addr string, detectors *anomaly.Registry) *Server {
	s := &Server{
		detectors: detectors,
		router:    chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.health)

	s.router.Route("/v1/detectors/{name}", func(r chi.Router) {
		r.Post("/learn", s.learn)
		r.Post("/match", s.match)
		r.Post("/describe", s.describe)
		r.Post("/snapshot", s.snapshot)
	})

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	return s
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// learn reads newline-delimited samples from the request body and learns
// each one into the named detector's trie.
// POST /v1/detectors/{name}/learn
func (s *Server) learn(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	d, err := s.detectors.Get(r.Context(), name)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("resolving detector: %v", err))
		return
	}

	var samples []string
	scanner := bufio.NewScanner(io.LimitReader(r.Body, maxLearnBodyBytes))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		samples = append(samples, line)
	}
	if err := scanner.Err(); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("reading request body: %v", err))
		return
	}

	if err := d.Learn(samples); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("learning samples: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]int{"learned": len(samples)})
}

// match reports whether the request body's single line matches what the
// named detector has already learned.
// POST /v1/detectors/{name}/match
func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	d, err := s.detectors.Get(r.Context(), name)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("resolving detector: %v", err))
		return
	}

	line, err := readLine(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("reading request body: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"matched": d.Match(line)})
}

// describe returns the per-token diagnostic for a line that failed to
// match, scoring its best alignment against the named detector's trie.
// POST /v1/detectors/{name}/describe
func (s *Server) describe(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	d, err := s.detectors.Get(r.Context(), name)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("resolving detector: %v", err))
		return
	}

	line, err := readLine(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("reading request body: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, d.Describe(line))
}

// snapshot forces the named detector's trie to be persisted.
// POST /v1/detectors/{name}/snapshot
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.detectors.Snapshot(r.Context(), name); err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("snapshotting detector: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// health returns the health status of the API.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// readLine reads the full request body as a single trimmed line.
func readLine(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLearnBodyBytes))
	if err != nil {
		return "", err
	}
	line := string(body)
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}
