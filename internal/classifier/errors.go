// Package classifier implements the landmark classification pipeline: dataset
// loading, feature encoding, network training, prediction, and artifact
// persistence for the fingerspelling model.
package classifier

import (
	"errors"
	"fmt"
)

// ErrNotTrained is returned when prediction or saving is attempted before a
// model has been trained or loaded.
var ErrNotTrained = errors.New("model not trained")

// ErrTrainingInProgress is returned when a training run is requested while
// another one is still active. Runs are never interleaved.
var ErrTrainingInProgress = errors.New("training already in progress")

// DataError reports an empty or unusable dataset. It is surfaced to the
// training caller and never silently retried.
type DataError struct {
	Dir    string
	Reason string
}

func (e *DataError) Error() string {
	if e.Dir == "" {
		return "dataset error: " + e.Reason
	}
	return fmt.Sprintf("dataset error in %s: %s", e.Dir, e.Reason)
}

// PersistenceError reports a missing or corrupt artifact bundle. It is
// recoverable: the caller may retrain instead.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// InferenceError reports an unexpected failure during the forward pass. It is
// surfaced with context rather than crashing the serving process.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
