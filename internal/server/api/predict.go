package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/landmark"
)

// PredictHandler handles HTTP requests for letter classification.
type PredictHandler struct {
	model *classifier.Model
}

// NewPredictHandler creates a new PredictHandler with the given model.
func NewPredictHandler(m *classifier.Model) *PredictHandler {
	return &PredictHandler{model: m}
}

type predictRequest struct {
	Landmarks []landmark.Point3D `json:"landmarks"`
}

// ServeHTTP implements the http.Handler interface.
func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	result, err := h.model.Predict(req.Landmarks)
	if err != nil {
		var verr *landmark.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, classifier.ErrNotTrained):
			writeError(w, http.StatusConflict, "No trained model available")
		default:
			// Inference failures degrade to an unknown prediction rather
			// than dropping the request.
			log.Printf("predict error: %v", err)
			writeJSON(w, http.StatusOK, classifier.PredictionResult{
				Prediction: classifier.Unknown,
				Confidence: 0,
				Note:       "prediction failed",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
