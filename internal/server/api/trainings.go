package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/fingerspell/internal/store"
)

// TrainingsHandler serves the training run history.
type TrainingsHandler struct {
	store *store.Store
}

// NewTrainingsHandler creates a new TrainingsHandler with the given store.
func NewTrainingsHandler(s *store.Store) *TrainingsHandler {
	return &TrainingsHandler{store: s}
}

type trainingRunResponse struct {
	ID         string   `json:"id"`
	Accuracy   float64  `json:"accuracy"`
	Samples    int      `json:"samples"`
	Features   int      `json:"features"`
	Classes    []string `json:"classes"`
	DurationMS int64    `json:"duration_ms"`
	CreatedAt  string   `json:"created_at"`
}

type listTrainingsResponse struct {
	Trainings []trainingRunResponse `json:"trainings"`
}

func toTrainingResponse(run *store.TrainingRun) trainingRunResponse {
	return trainingRunResponse{
		ID:         run.ID,
		Accuracy:   run.Accuracy,
		Samples:    run.Samples,
		Features:   run.Features,
		Classes:    run.Classes,
		DurationMS: run.Duration.Milliseconds(),
		CreatedAt:  run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *TrainingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// Expected paths: /api/trainings or /api/trainings/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/trainings")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, path)
}

// list handles GET /api/trainings and returns all runs, newest first.
func (h *TrainingsHandler) list(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.Trainings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list training runs")
		return
	}

	response := listTrainingsResponse{
		Trainings: make([]trainingRunResponse, 0, len(runs)),
	}
	for _, run := range runs {
		response.Trainings = append(response.Trainings, toTrainingResponse(run))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/trainings/{id} and returns a single run.
func (h *TrainingsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.store.Trainings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Training run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get training run")
		return
	}

	writeJSON(w, http.StatusOK, toTrainingResponse(run))
}
