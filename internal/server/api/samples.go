package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/fingerspell/internal/landmark"
	"github.com/ayusman/fingerspell/internal/samples"
)

// SamplesHandler handles HTTP requests for labeled training samples.
type SamplesHandler struct {
	store *samples.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given sample store.
func NewSamplesHandler(s *samples.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

type createSampleRequest struct {
	Letter    string             `json:"letter"`
	Landmarks []landmark.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

type createSampleResponse struct {
	SampleID string `json:"sample_id"`
	Letter   string `json:"letter"`
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/samples and /api/samples/stats
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/samples")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case path == "stats" && r.Method == http.MethodGet:
		h.stats(w, r)
	case path == "" || path == "stats":
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// create handles POST /api/samples and stores one labeled capture.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	capturedAt := time.Now()
	if req.Timestamp > 0 {
		capturedAt = time.UnixMilli(req.Timestamp)
	}

	id, err := h.store.Save(req.Letter, req.Landmarks, capturedAt)
	if err != nil {
		var lerr *samples.LetterError
		var verr *landmark.ValidationError
		switch {
		case errors.As(err, &lerr):
			writeError(w, http.StatusBadRequest, lerr.Error())
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to save sample")
		}
		return
	}

	writeJSON(w, http.StatusCreated, createSampleResponse{SampleID: id, Letter: req.Letter})
}

// stats handles GET /api/samples/stats and summarizes the stored dataset.
func (h *SamplesHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read sample stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
