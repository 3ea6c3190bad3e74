package classifier

import (
	"log"
	"sort"
	"sync/atomic"

	"github.com/ayusman/fingerspell/internal/landmark"
)

// ConfidenceThreshold is the minimum top-class probability required to emit a
// concrete letter rather than the unknown sentinel.
const ConfidenceThreshold = 0.5

// Unknown is the sentinel prediction emitted when no class clears the
// confidence threshold.
const Unknown = "?"

// Alternative is one candidate letter with its probability.
type Alternative struct {
	Letter     string  `json:"letter"`
	Confidence float64 `json:"confidence"`
}

// PredictionResult is the outcome of classifying one hand pose.
type PredictionResult struct {
	Prediction     string        `json:"prediction"`
	Confidence     float64       `json:"confidence"`
	TopPredictions []Alternative `json:"top_predictions"`
	Note           string        `json:"note,omitempty"`
}

// Model is the classification service. It holds the current trained artifact
// behind an atomic pointer, so a retrain swaps the network, encoder, and
// scaler as one unit: in-flight predictions see either the old artifact in
// full or the new one in full, never a mix. Prediction is lock-free and safe
// for any number of concurrent callers.
type Model struct {
	artifact atomic.Pointer[TrainedArtifact]
	training atomic.Bool
}

// New returns an untrained Model.
func New() *Model {
	return &Model{}
}

// IsTrained reports whether an artifact is currently loaded.
func (m *Model) IsTrained() bool {
	return m.artifact.Load() != nil
}

// TrainingInProgress reports whether a training run is currently active.
func (m *Model) TrainingInProgress() bool {
	return m.training.Load()
}

// Metadata returns the metadata of the current artifact, if any.
func (m *Model) Metadata() (Metadata, bool) {
	a := m.artifact.Load()
	if a == nil {
		return Metadata{}, false
	}
	return a.Meta, true
}

// Train runs a full training pass over the sample directory and, on success,
// replaces the current artifact. Only one run may be in flight at a time; a
// concurrent call is rejected with ErrTrainingInProgress rather than
// interleaved.
func (m *Model) Train(dir string, opts TrainOptions) (*TrainResult, error) {
	if !m.training.CompareAndSwap(false, true) {
		return nil, ErrTrainingInProgress
	}
	defer m.training.Store(false)

	artifact, result, err := trainArtifact(dir, opts)
	if err != nil {
		return nil, err
	}

	m.artifact.Store(artifact)
	return result, nil
}

// StartTraining launches a training run on a background goroutine so request
// handling is never blocked behind it. The single-flight guard is taken
// before returning: a second call while a run is active fails immediately
// with ErrTrainingInProgress. done, if non-nil, is invoked with the outcome.
func (m *Model) StartTraining(dir string, opts TrainOptions, done func(*TrainResult, error)) error {
	if !m.training.CompareAndSwap(false, true) {
		return ErrTrainingInProgress
	}

	go func() {
		artifact, result, err := trainArtifact(dir, opts)
		if err == nil {
			m.artifact.Store(artifact)
		}

		// Release the guard before the callback so done observes the
		// run as finished.
		m.training.Store(false)

		if done != nil {
			done(result, err)
		}
	}()

	return nil
}

// Predict classifies one hand pose. The input must be a complete set of 21
// landmark points; PredictVector accepts the pre-flattened form. Returns
// ErrNotTrained when no artifact is loaded and a ValidationError for
// malformed input.
func (m *Model) Predict(points []landmark.Point3D) (*PredictionResult, error) {
	a := m.artifact.Load()
	if a == nil {
		return nil, ErrNotTrained
	}

	if err := landmark.Validate(points); err != nil {
		return nil, err
	}

	scaled, err := a.Scaler.Transform(landmark.Normalize(points))
	if err != nil {
		return nil, err
	}

	probs, err := a.Network.Predict(scaled)
	if err != nil {
		return nil, err
	}

	// Rank classes by probability; the stable sort breaks ties in favor of
	// the lower class index.
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return probs[order[i]] > probs[order[j]]
	})

	topN := 3
	if len(order) < topN {
		topN = len(order)
	}
	top := make([]Alternative, 0, topN)
	for _, class := range order[:topN] {
		letter, err := a.Encoder.Decode(class)
		if err != nil {
			return nil, &InferenceError{Err: err}
		}
		top = append(top, Alternative{Letter: letter, Confidence: probs[class]})
	}

	confidence := probs[order[0]]
	if confidence < ConfidenceThreshold {
		return &PredictionResult{
			Prediction:     Unknown,
			Confidence:     confidence,
			TopPredictions: top,
			Note:           "low confidence",
		}, nil
	}

	letter, err := a.Encoder.Decode(order[0])
	if err != nil {
		return nil, &InferenceError{Err: err}
	}

	return &PredictionResult{
		Prediction:     letter,
		Confidence:     confidence,
		TopPredictions: top,
	}, nil
}

// PredictVector classifies a pre-flattened 63-element landmark vector. The
// vector is converted back to points at this boundary so the rest of the
// pipeline only ever handles one input shape.
func (m *Model) PredictVector(v []float64) (*PredictionResult, error) {
	points, err := landmark.FromFlat(v)
	if err != nil {
		return nil, err
	}
	return m.Predict(points)
}

// Save persists the current artifact under the given base path.
func (m *Model) Save(basePath string) error {
	a := m.artifact.Load()
	if a == nil {
		return ErrNotTrained
	}
	return SaveArtifact(a, basePath)
}

// Load restores an artifact bundle from disk. It returns false on any
// recoverable failure, including a missing bundle, and never panics or
// errors for an absent file; the model keeps its previous state on failure.
func (m *Model) Load(basePath string) bool {
	a, err := LoadArtifact(basePath)
	if err != nil {
		log.Printf("model load failed: %v", err)
		return false
	}

	m.artifact.Store(a)
	return true
}
