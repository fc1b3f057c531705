// Package server provides the HTTP server for the PosePlay kiosk.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/poseplay/internal/app"
	"github.com/ayusman/poseplay/internal/server/api"
	"github.com/ayusman/poseplay/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	Store     *store.Store
	// Stream enables the MJPEG preview at /api/stream.
	Stream bool
}

// Server represents the HTTP server for the PosePlay application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		sessionHandler := api.NewSessionHandler(s.config.App)
		s.mux.Handle("/api/state", sessionHandler)
		s.mux.Handle("/api/game/", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)
		s.mux.Handle("/api/poses", sessionHandler)

		s.mux.Handle("/api/state/ws", NewStateHandler(s.config.App))
		s.mux.HandleFunc("/api/plugins", s.handlePlugins)

		if s.config.Stream {
			s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))
		}
	}

	if s.config.Store != nil {
		resultsHandler := api.NewResultsHandler(s.config.Store)
		s.mux.Handle("/api/results", resultsHandler)
		s.mux.Handle("/api/results/", resultsHandler)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		snap := s.config.App.Snapshot()
		response["phase"] = snap.Phase
		response["camera"] = s.config.App.HasCamera()
		response["enabled"] = snap.Enabled
	}

	writeJSON(w, response)
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Events      []string `json:"events"`
}

// handlePlugins handles GET /api/plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	plugins := s.config.App.PluginManager().List()
	out := make([]pluginResponse, 0, len(plugins))
	for _, p := range plugins {
		out = append(out, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Events:      p.Manifest.Events,
		})
	}
	writeJSON(w, map[string]any{"plugins": out})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// HTTPServer returns an http.Server for addr so callers can shut it down gracefully.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
