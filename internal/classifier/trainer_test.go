package classifier

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/ayusman/fingerspell/internal/fixtures"
)

func TestClassWeights(t *testing.T) {
	// 10 samples of class 0 and 40 of class 1 out of N=50, K=2.
	y := make([]int, 0, 50)
	for i := 0; i < 10; i++ {
		y = append(y, 0)
	}
	for i := 0; i < 40; i++ {
		y = append(y, 1)
	}

	w := classWeights(y, 2)

	// weight = N / (K * n_c)
	if !floatEqual(w[0], 50.0/(2*10)) {
		t.Errorf("w[0] = %f, want 2.5", w[0])
	}
	if !floatEqual(w[1], 50.0/(2*40)) {
		t.Errorf("w[1] = %f, want 0.625", w[1])
	}

	// The rare class carries 4x the weight of the common one.
	if !floatEqual(w[0]/w[1], 4.0) {
		t.Errorf("weight ratio = %f, want 4", w[0]/w[1])
	}
}

func TestStratifiedSplit(t *testing.T) {
	labels := make([]string, 0, 50)
	y := make([]int, 0, 50)
	for i := 0; i < 30; i++ {
		labels = append(labels, "A")
		y = append(y, 0)
	}
	for i := 0; i < 20; i++ {
		labels = append(labels, "B")
		y = append(y, 1)
	}

	rng := rand.New(rand.NewSource(42))
	trainIdx, testIdx, err := stratifiedSplit(labels, y, 2, 0.2, rng)
	if err != nil {
		t.Fatalf("stratifiedSplit() error = %v", err)
	}

	if len(trainIdx)+len(testIdx) != 50 {
		t.Fatalf("split covers %d samples, want 50", len(trainIdx)+len(testIdx))
	}

	testPerClass := make(map[int]int)
	for _, i := range testIdx {
		testPerClass[y[i]]++
	}

	// 20% of each class: 6 of A, 4 of B.
	if testPerClass[0] != 6 {
		t.Errorf("class A test count = %d, want 6", testPerClass[0])
	}
	if testPerClass[1] != 4 {
		t.Errorf("class B test count = %d, want 4", testPerClass[1])
	}
}

func TestStratifiedSplit_TooFewSamples(t *testing.T) {
	labels := []string{"A", "A", "B"}
	y := []int{0, 0, 1}

	rng := rand.New(rand.NewSource(42))
	_, _, err := stratifiedSplit(labels, y, 2, 0.2, rng)
	if err == nil {
		t.Fatal("expected error for a letter with a single sample")
	}

	var derr *DataError
	if !errors.As(err, &derr) {
		t.Fatalf("error type = %T, want *DataError", err)
	}
}

func TestTrainOptions_Defaults(t *testing.T) {
	o := TrainOptions{}.withDefaults()

	if o.TestFraction != 0.2 || o.MaxEpochs != 100 || o.BatchSize != 32 ||
		o.Patience != 15 || o.LearningRate != 0.001 || o.Seed != 42 {
		t.Errorf("unexpected defaults: %+v", o)
	}
}

// Two well-separated letters, 20 samples each: training must converge and a
// held-out pose from the A cluster must come back as a confident A.
func TestTrainArtifact_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping training test")
	}

	dir := t.TempDir()
	rng := rand.New(rand.NewSource(7))

	if err := fixtures.WriteSamples(dir, "A", fixtures.LetterA(), 20, rng); err != nil {
		t.Fatal(err)
	}
	if err := fixtures.WriteSamples(dir, "B", fixtures.LetterB(), 20, rng); err != nil {
		t.Fatal(err)
	}

	artifact, result, err := trainArtifact(dir, TrainOptions{})
	if err != nil {
		t.Fatalf("trainArtifact() error = %v", err)
	}

	if result.Accuracy < 0.9 {
		t.Errorf("accuracy = %f, want >= 0.9", result.Accuracy)
	}
	if result.SampleCount != 40 {
		t.Errorf("sample count = %d, want 40", result.SampleCount)
	}
	if result.FeatureCount != 63 {
		t.Errorf("feature count = %d, want 63", result.FeatureCount)
	}
	if len(result.Classes) != 2 || result.Classes[0] != "A" || result.Classes[1] != "B" {
		t.Errorf("classes = %v, want [A B]", result.Classes)
	}

	if artifact.Network == nil || artifact.Encoder == nil || artifact.Scaler == nil {
		t.Fatal("artifact is missing a component")
	}
	if artifact.Meta.Accuracy != result.Accuracy {
		t.Errorf("metadata accuracy %f != result accuracy %f", artifact.Meta.Accuracy, result.Accuracy)
	}
}

func TestTrainArtifact_EmptyDataset(t *testing.T) {
	_, _, err := trainArtifact(t.TempDir(), TrainOptions{})

	var derr *DataError
	if !errors.As(err, &derr) {
		t.Fatalf("error type = %T, want *DataError", err)
	}
}
