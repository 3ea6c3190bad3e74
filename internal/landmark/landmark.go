// Package landmark provides the 21-point hand skeleton types shared by the
// classification pipeline.
package landmark

import (
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FeatureSize is the length of a flattened landmark feature vector
// (21 landmarks, 3 coordinates each).
const FeatureSize = NumLandmarks * 3

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sample is one collected hand pose as stored on disk: a single-letter label,
// the 21 landmark points, and collection metadata.
type Sample struct {
	Letter    string    `json:"letter"`
	Landmarks []Point3D `json:"landmarks"`
	Timestamp int64     `json:"timestamp"`
	SampleID  string    `json:"sample_id"`
}

// ValidationError reports malformed landmark or feature input.
type ValidationError struct {
	Field string
	Want  int
	Got   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: expected %d, got %d", e.Field, e.Want, e.Got)
}

// Validate checks that a set of landmark points describes a complete hand.
func Validate(points []Point3D) error {
	if len(points) != NumLandmarks {
		return &ValidationError{Field: "landmarks", Want: NumLandmarks, Got: len(points)}
	}
	return nil
}

// Flatten converts landmark points to a flat [x0,y0,z0,x1,...] vector.
func Flatten(points []Point3D) []float64 {
	v := make([]float64, 0, len(points)*3)
	for _, p := range points {
		v = append(v, p.X, p.Y, p.Z)
	}
	return v
}

// FromFlat converts a flattened 63-element vector back into landmark points.
func FromFlat(v []float64) ([]Point3D, error) {
	if len(v) != FeatureSize {
		return nil, &ValidationError{Field: "features", Want: FeatureSize, Got: len(v)}
	}
	points := make([]Point3D, NumLandmarks)
	for i := range points {
		points[i] = Point3D{X: v[i*3], Y: v[i*3+1], Z: v[i*3+2]}
	}
	return points, nil
}

// Normalize makes a hand pose invariant to position and scale in the source
// image. Landmarks are translated so the wrist sits at the origin, then scaled
// by the hand size (distance from the wrist to the middle fingertip). A
// degenerate pose with zero hand size is passed through centered but unscaled.
// The same function runs at training and inference time; any mismatch between
// the two silently ruins accuracy.
func Normalize(points []Point3D) []float64 {
	wrist := points[Wrist]

	centered := make([]Point3D, len(points))
	for i, p := range points {
		centered[i] = Point3D{X: p.X - wrist.X, Y: p.Y - wrist.Y, Z: p.Z - wrist.Z}
	}

	tip := centered[MiddleTip]
	size := math.Sqrt(tip.X*tip.X + tip.Y*tip.Y + tip.Z*tip.Z)

	if size < 1e-10 {
		return Flatten(centered)
	}

	for i := range centered {
		centered[i].X /= size
		centered[i].Y /= size
		centered[i].Z /= size
	}
	return Flatten(centered)
}

// NormalizeVector normalizes an already flattened 63-element raw vector.
func NormalizeVector(v []float64) ([]float64, error) {
	points, err := FromFlat(v)
	if err != nil {
		return nil, err
	}
	return Normalize(points), nil
}
