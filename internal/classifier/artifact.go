package classifier

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FormatVersion identifies the artifact encoding. It lives inside the model
// manifest so the loader never has to guess the format from the filename.
const FormatVersion = "fingerspell.model.v1"

// modelExtensions lists the recognized model file extensions in load
// preference order. New bundles are written as JSON; gob bundles from older
// deployments are still accepted.
var modelExtensions = []string{".json", ".gob"}

// Metadata describes the dataset and evaluation of a trained artifact.
type Metadata struct {
	Accuracy     float64   `json:"accuracy"`
	SampleCount  int       `json:"sample_count"`
	FeatureCount int       `json:"feature_count"`
	Classes      []string  `json:"classes"`
	TrainedAt    time.Time `json:"trained_at"`
}

// TrainedArtifact is the complete output of one training run: the fitted
// network together with the label encoder and feature scaler it was trained
// against. Immutable once built; retraining produces a wholly new artifact.
type TrainedArtifact struct {
	Network *Network
	Encoder *LabelEncoder
	Scaler  *StandardScaler
	Meta    Metadata
}

// modelFile is the on-disk model manifest: version header, metadata, and the
// network parameters.
type modelFile struct {
	Version string        `json:"version"`
	Meta    Metadata      `json:"metadata"`
	Network *networkState `json:"network"`
}

// preprocessorsFile bundles the label encoder and feature scaler as a single
// companion blob next to the model file.
type preprocessorsFile struct {
	Version string          `json:"version"`
	Encoder *LabelEncoder   `json:"label_encoder"`
	Scaler  *StandardScaler `json:"scaler"`
}

// SaveArtifact writes the bundle as <base>_model.json and
// <base>_preprocessors.json. Both files are staged in a temporary directory
// and renamed into place only after both encode successfully, so a crash
// cannot leave a half-written bundle behind.
func SaveArtifact(a *TrainedArtifact, basePath string) error {
	if a == nil || a.Network == nil {
		return ErrNotTrained
	}

	dir := filepath.Dir(basePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Path: basePath, Err: err}
	}

	tmpDir, err := os.MkdirTemp(dir, ".artifact-")
	if err != nil {
		return &PersistenceError{Path: basePath, Err: err}
	}
	defer os.RemoveAll(tmpDir)

	model := modelFile{
		Version: FormatVersion,
		Meta:    a.Meta,
		Network: a.Network.snapshot(),
	}
	prep := preprocessorsFile{
		Version: FormatVersion,
		Encoder: a.Encoder,
		Scaler:  a.Scaler,
	}

	tmpModel := filepath.Join(tmpDir, "model.json")
	if err := writeJSONFile(tmpModel, model); err != nil {
		return &PersistenceError{Path: basePath, Err: err}
	}

	tmpPrep := filepath.Join(tmpDir, "preprocessors.json")
	if err := writeJSONFile(tmpPrep, prep); err != nil {
		return &PersistenceError{Path: basePath, Err: err}
	}

	if err := os.Rename(tmpModel, basePath+"_model.json"); err != nil {
		return &PersistenceError{Path: basePath, Err: err}
	}
	if err := os.Rename(tmpPrep, basePath+"_preprocessors.json"); err != nil {
		return &PersistenceError{Path: basePath, Err: err}
	}

	return nil
}

// LoadArtifact restores a bundle saved under basePath. The recognized model
// extensions are checked in preference order; the companion preprocessors
// file must use the same encoding. A missing or corrupt bundle yields a
// PersistenceError and no partial state.
func LoadArtifact(basePath string) (*TrainedArtifact, error) {
	var ext string
	for _, candidate := range modelExtensions {
		if _, err := os.Stat(basePath + "_model" + candidate); err == nil {
			ext = candidate
			break
		}
	}
	if ext == "" {
		return nil, &PersistenceError{Path: basePath, Err: fmt.Errorf("no model file found: %w", fs.ErrNotExist)}
	}

	var model modelFile
	if err := readBundleFile(basePath+"_model"+ext, ext, &model); err != nil {
		return nil, &PersistenceError{Path: basePath, Err: err}
	}
	if model.Version != FormatVersion {
		return nil, &PersistenceError{Path: basePath, Err: fmt.Errorf("unsupported model version %q", model.Version)}
	}
	if model.Network == nil {
		return nil, &PersistenceError{Path: basePath, Err: errors.New("model file has no network parameters")}
	}

	var prep preprocessorsFile
	if err := readBundleFile(basePath+"_preprocessors"+ext, ext, &prep); err != nil {
		return nil, &PersistenceError{Path: basePath, Err: err}
	}
	if prep.Encoder == nil || prep.Scaler == nil {
		return nil, &PersistenceError{Path: basePath, Err: errors.New("preprocessors file is incomplete")}
	}

	network, err := networkFromState(model.Network)
	if err != nil {
		return nil, &PersistenceError{Path: basePath, Err: err}
	}

	// The three parts must agree on dimensions, otherwise the bundle was
	// mixed from different training runs.
	if len(prep.Scaler.Mean) != network.inDim {
		return nil, &PersistenceError{Path: basePath, Err: fmt.Errorf("scaler width %d does not match network input %d", len(prep.Scaler.Mean), network.inDim)}
	}
	if prep.Encoder.NumClasses() != network.numClasses {
		return nil, &PersistenceError{Path: basePath, Err: fmt.Errorf("encoder has %d classes, network has %d", prep.Encoder.NumClasses(), network.numClasses)}
	}

	prep.Encoder.buildIndex()

	return &TrainedArtifact{
		Network: network,
		Encoder: prep.Encoder,
		Scaler:  prep.Scaler,
		Meta:    model.Meta,
	}, nil
}

// writeJSONFile encodes v into path, guaranteeing the handle is closed and
// flushed before returning.
func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readBundleFile decodes one bundle file according to its extension.
func readBundleFile(path, ext string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch ext {
	case ".json":
		return json.NewDecoder(f).Decode(v)
	case ".gob":
		return gob.NewDecoder(f).Decode(v)
	default:
		return fmt.Errorf("unrecognized artifact extension %q", ext)
	}
}
