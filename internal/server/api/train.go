package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/store"
)

// TrainHandler starts background training runs and records their outcomes.
type TrainHandler struct {
	model        *classifier.Model
	store        *store.Store
	dataDir      string
	artifactPath string
}

// NewTrainHandler creates a new TrainHandler.
func NewTrainHandler(m *classifier.Model, s *store.Store, dataDir, artifactPath string) *TrainHandler {
	return &TrainHandler{
		model:        m,
		store:        s,
		dataDir:      dataDir,
		artifactPath: artifactPath,
	}
}

type trainResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ServeHTTP implements the http.Handler interface.
func (h *TrainHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := uuid.New().String()
	err := h.model.StartTraining(h.dataDir, classifier.TrainOptions{}, func(result *classifier.TrainResult, err error) {
		h.finish(id, result, err)
	})
	if err != nil {
		if errors.Is(err, classifier.ErrTrainingInProgress) {
			writeError(w, http.StatusConflict, "Training already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start training")
		return
	}

	writeJSON(w, http.StatusAccepted, trainResponse{ID: id, Status: "training"})
}

// finish runs on the training goroutine once a run completes. It persists
// the new artifact and records the run in the training history.
func (h *TrainHandler) finish(id string, result *classifier.TrainResult, err error) {
	if err != nil {
		log.Printf("training %s failed: %v", id, err)
		return
	}

	if h.artifactPath != "" {
		if err := h.model.Save(h.artifactPath); err != nil {
			log.Printf("training %s: failed to save model: %v", id, err)
		}
	}

	if h.store != nil {
		run := &store.TrainingRun{
			ID:       id,
			Accuracy: result.Accuracy,
			Samples:  result.SampleCount,
			Features: result.FeatureCount,
			Classes:  result.Classes,
			Duration: result.Duration,
		}
		if err := h.store.Trainings().Create(run); err != nil {
			log.Printf("training %s: failed to record run: %v", id, err)
		}
	}

	log.Printf("training %s complete: accuracy %.4f over %d samples", id, result.Accuracy, result.SampleCount)
}
