package api

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/fixtures"
	"github.com/ayusman/fingerspell/internal/landmark"
	"github.com/ayusman/fingerspell/internal/samples"
	"github.com/ayusman/fingerspell/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "fingerspell-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// trainedModel trains a small two-letter model from generated fixtures.
func trainedModel(t *testing.T) *classifier.Model {
	t.Helper()

	dataDir := t.TempDir()
	rng := rand.New(rand.NewSource(3))
	if err := fixtures.WriteSamples(dataDir, "A", fixtures.LetterA(), 15, rng); err != nil {
		t.Fatal(err)
	}
	if err := fixtures.WriteSamples(dataDir, "B", fixtures.LetterB(), 15, rng); err != nil {
		t.Fatal(err)
	}

	m := classifier.New()
	if _, err := m.Train(dataDir, classifier.TrainOptions{MaxEpochs: 30}); err != nil {
		t.Fatalf("failed to train model: %v", err)
	}
	return m
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPredictHandler_NotTrained(t *testing.T) {
	handler := NewPredictHandler(classifier.New())

	rec := postJSON(t, handler, "/api/predict", predictRequest{Landmarks: fixtures.LetterA()})

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestPredictHandler_InvalidLandmarks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping training-backed test in short mode")
	}
	handler := NewPredictHandler(trainedModel(t))

	rec := postJSON(t, handler, "/api/predict", predictRequest{Landmarks: fixtures.LetterA()[:5]})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestPredictHandler_InvalidJSON(t *testing.T) {
	handler := NewPredictHandler(classifier.New())

	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestPredictHandler_Predict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping training-backed test in short mode")
	}
	handler := NewPredictHandler(trainedModel(t))

	rng := rand.New(rand.NewSource(9))
	pose := fixtures.Jitter(fixtures.LetterB(), rng, 0.005)
	rec := postJSON(t, handler, "/api/predict", predictRequest{Landmarks: pose})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var result classifier.PredictionResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Prediction != "B" {
		t.Errorf("prediction = %q, want B", result.Prediction)
	}
	if result.Confidence <= classifier.ConfidenceThreshold {
		t.Errorf("confidence = %f, want above threshold", result.Confidence)
	}
}

func TestPredictHandler_MethodNotAllowed(t *testing.T) {
	handler := NewPredictHandler(classifier.New())

	req := httptest.NewRequest(http.MethodGet, "/api/predict", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestSamplesHandler_CreateAndStats(t *testing.T) {
	sampleStore := samples.NewStore(t.TempDir())
	handler := NewSamplesHandler(sampleStore)

	rec := postJSON(t, handler, "/api/samples", createSampleRequest{
		Letter:    "A",
		Landmarks: fixtures.LetterA(),
		Timestamp: time.Now().UnixMilli(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var created createSampleResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.SampleID == "" {
		t.Error("expected a sample ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/samples/stats", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var stats samples.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Total != 1 || stats.Letters["A"] != 1 {
		t.Errorf("stats = %+v, want A:1 total 1", stats)
	}
}

func TestSamplesHandler_InvalidLetter(t *testing.T) {
	handler := NewSamplesHandler(samples.NewStore(t.TempDir()))

	rec := postJSON(t, handler, "/api/samples", createSampleRequest{
		Letter:    "abc",
		Landmarks: fixtures.LetterA(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestTrainingsHandler_ListAndGet(t *testing.T) {
	s := newTestStore(t)
	handler := NewTrainingsHandler(s)

	run := &store.TrainingRun{
		ID:       "run-1",
		Accuracy: 0.95,
		Samples:  30,
		Features: 63,
		Classes:  []string{"A", "B"},
		Duration: 3 * time.Second,
	}
	if err := s.Trainings().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/trainings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listTrainingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Trainings) != 1 {
		t.Fatalf("expected 1 run, got %d", len(response.Trainings))
	}
	if response.Trainings[0].ID != "run-1" || response.Trainings[0].DurationMS != 3000 {
		t.Errorf("unexpected run: %+v", response.Trainings[0])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/trainings/run-1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/trainings/missing", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestTrainHandler_Workflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping training-backed test in short mode")
	}

	dataDir := t.TempDir()
	rng := rand.New(rand.NewSource(5))
	if err := fixtures.WriteSamples(dataDir, "A", fixtures.LetterA(), 15, rng); err != nil {
		t.Fatal(err)
	}
	if err := fixtures.WriteSamples(dataDir, "B", fixtures.LetterB(), 15, rng); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t)
	model := classifier.New()
	artifactPath := filepath.Join(t.TempDir(), "landmark_model")
	handler := NewTrainHandler(model, s, dataDir, artifactPath)

	req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d: %s", http.StatusAccepted, rec.Code, rec.Body.String())
	}

	var resp trainResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "training" || resp.ID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Wait for the background run to finish and its record to land.
	deadline := time.After(2 * time.Minute)
	for {
		if _, err := s.Trainings().GetByID(resp.ID); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for training to complete")
		case <-time.After(50 * time.Millisecond):
		}
	}

	if !model.IsTrained() {
		t.Error("model should be trained after the run completes")
	}

	run, err := s.Trainings().GetByID(resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Samples != 30 || run.Features != landmark.FeatureSize {
		t.Errorf("run = %+v, want 30 samples and %d features", run, landmark.FeatureSize)
	}

	// The artifact must have been persisted alongside the run.
	fresh := classifier.New()
	if !fresh.Load(artifactPath) {
		t.Error("expected a saved model bundle")
	}
}

func TestTrainHandler_RejectsConcurrentRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping training-backed test in short mode")
	}

	dataDir := t.TempDir()
	rng := rand.New(rand.NewSource(11))
	if err := fixtures.WriteSamples(dataDir, "A", fixtures.LetterA(), 40, rng); err != nil {
		t.Fatal(err)
	}
	if err := fixtures.WriteSamples(dataDir, "B", fixtures.LetterB(), 40, rng); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t)
	model := classifier.New()
	handler := NewTrainHandler(model, s, dataDir, "")

	req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first request: expected status %d, got %d", http.StatusAccepted, rec.Code)
	}

	// The second request races against the run above. Either it is rejected
	// because the run is still active, or the run already finished and it is
	// accepted. Both are valid outcomes, anything else is a bug.
	req = httptest.NewRequest(http.MethodPost, "/api/train", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict && rec.Code != http.StatusAccepted {
		t.Errorf("second request: got status %d", rec.Code)
	}
}
