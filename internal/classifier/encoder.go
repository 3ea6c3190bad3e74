package classifier

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/fingerspell/internal/landmark"
)

// LabelEncoder maps letter strings to contiguous class indices and back.
// Classes are assigned in sorted order, so indices are deterministic across
// runs. Fitted once per artifact and frozen afterwards.
type LabelEncoder struct {
	Classes []string `json:"classes"`

	index map[string]int
}

// FitLabels builds a LabelEncoder over the distinct labels in the given set.
func FitLabels(labels []string) *LabelEncoder {
	seen := make(map[string]bool)
	var classes []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)

	e := &LabelEncoder{Classes: classes}
	e.buildIndex()
	return e
}

// buildIndex rebuilds the label→index map. Called after fitting and after
// deserialization, since only Classes is persisted.
func (e *LabelEncoder) buildIndex() {
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
}

// Encode returns the class index for a label.
func (e *LabelEncoder) Encode(label string) (int, error) {
	if e.index == nil {
		e.buildIndex()
	}
	i, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("unknown label %q", label)
	}
	return i, nil
}

// Decode returns the label for a class index.
func (e *LabelEncoder) Decode(class int) (string, error) {
	if class < 0 || class >= len(e.Classes) {
		return "", fmt.Errorf("class index %d out of range [0, %d)", class, len(e.Classes))
	}
	return e.Classes[class], nil
}

// NumClasses returns the number of distinct classes.
func (e *LabelEncoder) NumClasses() int {
	return len(e.Classes)
}

// StandardScaler centers and scales features using per-dimension mean and
// standard deviation computed over the training matrix. Zero-variance
// dimensions keep a scale of 1 so transform never divides by zero.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-dimension statistics over the rows of X.
func FitScaler(X [][]float64) *StandardScaler {
	if len(X) == 0 {
		return &StandardScaler{}
	}

	dims := len(X[0])
	s := &StandardScaler{
		Mean: make([]float64, dims),
		Std:  make([]float64, dims),
	}

	col := make([]float64, len(X))
	for d := 0; d < dims; d++ {
		for i, row := range X {
			col[i] = row[d]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if math.IsNaN(std) || std == 0 {
			std = 1
		}
		s.Mean[d] = mean
		s.Std[d] = std
	}
	return s
}

// Transform scales one feature vector. The input must have the same number of
// dimensions the scaler was fit on.
func (s *StandardScaler) Transform(v []float64) ([]float64, error) {
	if len(v) != len(s.Mean) {
		return nil, &landmark.ValidationError{Field: "features", Want: len(s.Mean), Got: len(v)}
	}

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = (x - s.Mean[i]) / s.Std[i]
	}
	return out, nil
}

// TransformAll scales every row of a feature matrix.
func (s *StandardScaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
