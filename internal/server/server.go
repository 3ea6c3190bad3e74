// Package server provides the HTTP server for the Fingerspell classification service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/samples"
	"github.com/ayusman/fingerspell/internal/server/api"
	"github.com/ayusman/fingerspell/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Model        *classifier.Model
	Samples      *samples.Store
	Store        *store.Store
	ArtifactPath string
	StaticDir    string
}

// Server represents the HTTP server for the Fingerspell application.
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

	if s.config.Model != nil {
		s.mux.Handle("/api/predict", api.NewPredictHandler(s.config.Model))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Model))
	}

	if s.config.Samples != nil {
		samplesHandler := api.NewSamplesHandler(s.config.Samples)
		s.mux.Handle("/api/samples", samplesHandler)
		s.mux.Handle("/api/samples/", samplesHandler)
	}

	// Training needs both a model to train and a dataset to train on
	if s.config.Model != nil && s.config.Samples != nil {
		trainHandler := api.NewTrainHandler(s.config.Model, s.config.Store,
			s.config.Samples.Root(), s.config.ArtifactPath)
		s.mux.Handle("/api/train", trainHandler)
	}

	if s.config.Store != nil {
		trainingsHandler := api.NewTrainingsHandler(s.config.Store)
		s.mux.Handle("/api/trainings", trainingsHandler)
		s.mux.Handle("/api/trainings/", trainingsHandler)
	}

	// Serve static files if StaticDir is configured
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

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	if s.config.Model != nil {
		response["trained"] = s.config.Model.IsTrained()
		response["training_in_progress"] = s.config.Model.TrainingInProgress()
		if meta, ok := s.config.Model.Metadata(); ok {
			response["model"] = map[string]interface{}{
				"accuracy":   meta.Accuracy,
				"classes":    meta.Classes,
				"samples":    meta.SampleCount,
				"trained_at": meta.TrainedAt.Format("2006-01-02T15:04:05Z07:00"),
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
