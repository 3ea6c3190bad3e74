// Package fixtures provides synthetic hand poses and sample files for tests.
package fixtures

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/ayusman/fingerspell/internal/landmark"
)

// LetterA returns a preset pose for the fingerspelled letter A: a closed fist
// with the thumb resting against the side of the index finger.
func LetterA() []landmark.Point3D {
	points := make([]landmark.Point3D, landmark.NumLandmarks)

	points[landmark.Wrist] = landmark.Point3D{X: 0.50, Y: 0.80, Z: 0.00}

	// Thumb alongside the fist
	points[landmark.ThumbCMC] = landmark.Point3D{X: 0.56, Y: 0.76, Z: 0.01}
	points[landmark.ThumbMCP] = landmark.Point3D{X: 0.60, Y: 0.70, Z: 0.02}
	points[landmark.ThumbIP] = landmark.Point3D{X: 0.61, Y: 0.64, Z: 0.02}
	points[landmark.ThumbTip] = landmark.Point3D{X: 0.61, Y: 0.58, Z: 0.02}

	// Index finger curled into the palm
	points[landmark.IndexMCP] = landmark.Point3D{X: 0.56, Y: 0.62, Z: 0.00}
	points[landmark.IndexPIP] = landmark.Point3D{X: 0.56, Y: 0.56, Z: -0.03}
	points[landmark.IndexDIP] = landmark.Point3D{X: 0.55, Y: 0.60, Z: -0.05}
	points[landmark.IndexTip] = landmark.Point3D{X: 0.55, Y: 0.65, Z: -0.05}

	// Middle finger curled
	points[landmark.MiddleMCP] = landmark.Point3D{X: 0.52, Y: 0.61, Z: 0.00}
	points[landmark.MiddlePIP] = landmark.Point3D{X: 0.52, Y: 0.54, Z: -0.03}
	points[landmark.MiddleDIP] = landmark.Point3D{X: 0.51, Y: 0.59, Z: -0.06}
	points[landmark.MiddleTip] = landmark.Point3D{X: 0.51, Y: 0.64, Z: -0.06}

	// Ring finger curled
	points[landmark.RingMCP] = landmark.Point3D{X: 0.48, Y: 0.62, Z: 0.00}
	points[landmark.RingPIP] = landmark.Point3D{X: 0.48, Y: 0.55, Z: -0.03}
	points[landmark.RingDIP] = landmark.Point3D{X: 0.47, Y: 0.60, Z: -0.06}
	points[landmark.RingTip] = landmark.Point3D{X: 0.47, Y: 0.65, Z: -0.06}

	// Pinky curled
	points[landmark.PinkyMCP] = landmark.Point3D{X: 0.44, Y: 0.64, Z: 0.00}
	points[landmark.PinkyPIP] = landmark.Point3D{X: 0.44, Y: 0.58, Z: -0.02}
	points[landmark.PinkyDIP] = landmark.Point3D{X: 0.43, Y: 0.62, Z: -0.04}
	points[landmark.PinkyTip] = landmark.Point3D{X: 0.43, Y: 0.66, Z: -0.04}

	return points
}

// LetterB returns a preset pose for the fingerspelled letter B: four fingers
// extended straight up and held together, thumb folded across the palm.
func LetterB() []landmark.Point3D {
	points := make([]landmark.Point3D, landmark.NumLandmarks)

	points[landmark.Wrist] = landmark.Point3D{X: 0.50, Y: 0.80, Z: 0.00}

	// Thumb folded across the palm
	points[landmark.ThumbCMC] = landmark.Point3D{X: 0.55, Y: 0.76, Z: 0.01}
	points[landmark.ThumbMCP] = landmark.Point3D{X: 0.54, Y: 0.70, Z: 0.02}
	points[landmark.ThumbIP] = landmark.Point3D{X: 0.50, Y: 0.67, Z: 0.03}
	points[landmark.ThumbTip] = landmark.Point3D{X: 0.46, Y: 0.66, Z: 0.03}

	// Index finger extended
	points[landmark.IndexMCP] = landmark.Point3D{X: 0.55, Y: 0.62, Z: 0.00}
	points[landmark.IndexPIP] = landmark.Point3D{X: 0.56, Y: 0.52, Z: 0.00}
	points[landmark.IndexDIP] = landmark.Point3D{X: 0.56, Y: 0.44, Z: 0.00}
	points[landmark.IndexTip] = landmark.Point3D{X: 0.56, Y: 0.36, Z: 0.00}

	// Middle finger extended
	points[landmark.MiddleMCP] = landmark.Point3D{X: 0.51, Y: 0.60, Z: 0.00}
	points[landmark.MiddlePIP] = landmark.Point3D{X: 0.51, Y: 0.49, Z: 0.00}
	points[landmark.MiddleDIP] = landmark.Point3D{X: 0.51, Y: 0.40, Z: 0.00}
	points[landmark.MiddleTip] = landmark.Point3D{X: 0.51, Y: 0.31, Z: 0.00}

	// Ring finger extended
	points[landmark.RingMCP] = landmark.Point3D{X: 0.47, Y: 0.61, Z: 0.00}
	points[landmark.RingPIP] = landmark.Point3D{X: 0.46, Y: 0.50, Z: 0.00}
	points[landmark.RingDIP] = landmark.Point3D{X: 0.46, Y: 0.42, Z: 0.00}
	points[landmark.RingTip] = landmark.Point3D{X: 0.46, Y: 0.34, Z: 0.00}

	// Pinky extended
	points[landmark.PinkyMCP] = landmark.Point3D{X: 0.43, Y: 0.63, Z: 0.00}
	points[landmark.PinkyPIP] = landmark.Point3D{X: 0.42, Y: 0.54, Z: 0.00}
	points[landmark.PinkyDIP] = landmark.Point3D{X: 0.42, Y: 0.48, Z: 0.00}
	points[landmark.PinkyTip] = landmark.Point3D{X: 0.42, Y: 0.42, Z: 0.00}

	return points
}

// Jitter returns a copy of the pose with small random noise on every
// coordinate, simulating detector variation between captures of the same
// sign.
func Jitter(points []landmark.Point3D, rng *rand.Rand, amount float64) []landmark.Point3D {
	out := make([]landmark.Point3D, len(points))
	for i, p := range points {
		out[i] = landmark.Point3D{
			X: p.X + (rng.Float64()*2-1)*amount,
			Y: p.Y + (rng.Float64()*2-1)*amount,
			Z: p.Z + (rng.Float64()*2-1)*amount,
		}
	}
	return out
}

// WriteSamples writes n jittered copies of a base pose as sample files under
// <dir>/<letter>/, in the collected-sample JSON format.
func WriteSamples(dir, letter string, base []landmark.Point3D, n int, rng *rand.Rand) error {
	letterDir := filepath.Join(dir, letter)
	if err := os.MkdirAll(letterDir, 0o755); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		sample := landmark.Sample{
			Letter:    letter,
			Landmarks: Jitter(base, rng, 0.008),
			Timestamp: int64(1700000000000 + i),
			SampleID:  fmt.Sprintf("%s-%03d", letter, i),
		}

		data, err := json.Marshal(sample)
		if err != nil {
			return err
		}

		path := filepath.Join(letterDir, sample.SampleID+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
