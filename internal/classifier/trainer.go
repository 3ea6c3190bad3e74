package classifier

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/fingerspell/internal/landmark"
)

// TrainOptions controls a training run. Zero values fall back to the
// defaults the model was tuned with.
type TrainOptions struct {
	TestFraction float64
	MaxEpochs    int
	BatchSize    int
	Patience     int
	LearningRate float64
	Seed         int64
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		o.TestFraction = 0.2
	}
	if o.MaxEpochs <= 0 {
		o.MaxEpochs = 100
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 32
	}
	if o.Patience <= 0 {
		o.Patience = 15
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.001
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
	return o
}

// TrainResult summarizes a completed training run.
type TrainResult struct {
	Accuracy     float64       `json:"accuracy"`
	Classes      []string      `json:"classes"`
	SampleCount  int           `json:"samples"`
	FeatureCount int           `json:"features"`
	Epochs       int           `json:"epochs"`
	Duration     time.Duration `json:"-"`
}

// trainArtifact runs the full training pipeline over a sample directory:
// load, normalize, fit encoder and scaler, stratified split, class-weighted
// mini-batch training with early stopping, and held-out evaluation. On any
// failure no artifact is produced.
func trainArtifact(dir string, opts TrainOptions) (*TrainedArtifact, *TrainResult, error) {
	opts = opts.withDefaults()
	start := time.Now()

	ds, err := LoadDataset(dir)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("loaded %d samples across %d letters from %s", len(ds.Features), len(ds.Counts), dir)

	normalized := make([][]float64, len(ds.Features))
	for i, row := range ds.Features {
		v, err := landmark.NormalizeVector(row)
		if err != nil {
			return nil, nil, err
		}
		normalized[i] = v
	}

	// Encoder and scaler statistics are fit over the full normalized set
	// before the split is drawn. Observed behavior of the original model,
	// kept as-is so retrained artifacts stay numerically comparable.
	encoder := FitLabels(ds.Labels)
	scaler := FitScaler(normalized)

	X, err := scaler.TransformAll(normalized)
	if err != nil {
		return nil, nil, err
	}

	y := make([]int, len(ds.Labels))
	for i, label := range ds.Labels {
		y[i], err = encoder.Encode(label)
		if err != nil {
			return nil, nil, err
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	trainIdx, testIdx, err := stratifiedSplit(ds.Labels, y, encoder.NumClasses(), opts.TestFraction, rng)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("split: %d train, %d test", len(trainIdx), len(testIdx))

	weights := classWeights(y, encoder.NumClasses())

	net := newNetwork(landmark.FeatureSize, encoder.NumClasses(), opts.Seed)

	testX := rowsToDense(X, testIdx)
	testY := pick(y, testIdx)

	bestLoss := math.Inf(1)
	var bestState *networkState
	wait := 0
	epochs := 0

	for epoch := 1; epoch <= opts.MaxEpochs; epoch++ {
		epochs = epoch
		rng.Shuffle(len(trainIdx), func(i, j int) {
			trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i]
		})

		var epochLoss float64
		batches := 0
		for off := 0; off < len(trainIdx); off += opts.BatchSize {
			end := off + opts.BatchSize
			if end > len(trainIdx) {
				end = len(trainIdx)
			}
			batch := trainIdx[off:end]

			bx := rowsToDense(X, batch)
			by := pick(y, batch)
			bw := make([]float64, len(batch))
			for i, idx := range batch {
				bw[i] = weights[y[idx]]
			}

			epochLoss += net.trainBatch(bx, by, bw, opts.LearningRate)
			batches++
		}

		valLoss := net.loss(testX, testY)
		if valLoss < bestLoss-1e-9 {
			bestLoss = valLoss
			bestState = net.snapshot()
			wait = 0
		} else {
			wait++
			if wait >= opts.Patience {
				log.Printf("early stopping at epoch %d (best val loss %.4f)", epoch, bestLoss)
				break
			}
		}

		if epoch%10 == 0 {
			log.Printf("epoch %d: train loss %.4f, val loss %.4f", epoch, epochLoss/float64(batches), valLoss)
		}
	}

	if bestState != nil {
		if err := net.restore(bestState); err != nil {
			return nil, nil, fmt.Errorf("restoring best weights: %w", err)
		}
	}

	accuracy := net.accuracy(testX, testY)
	log.Printf("training complete: accuracy %.4f over %d classes", accuracy, encoder.NumClasses())

	result := &TrainResult{
		Accuracy:     accuracy,
		Classes:      encoder.Classes,
		SampleCount:  len(ds.Features),
		FeatureCount: landmark.FeatureSize,
		Epochs:       epochs,
		Duration:     time.Since(start),
	}

	artifact := &TrainedArtifact{
		Network: net,
		Encoder: encoder,
		Scaler:  scaler,
		Meta: Metadata{
			Accuracy:     accuracy,
			SampleCount:  len(ds.Features),
			FeatureCount: landmark.FeatureSize,
			Classes:      encoder.Classes,
			TrainedAt:    time.Now().UTC(),
		},
	}

	return artifact, result, nil
}

// stratifiedSplit partitions sample indices so every letter keeps its
// proportional share in both the train and test sets. Every letter needs at
// least two samples, one for each side of the split.
func stratifiedSplit(labels []string, y []int, numClasses int, testFraction float64, rng *rand.Rand) (trainIdx, testIdx []int, err error) {
	byClass := make([][]int, numClasses)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}

	// Classes are visited in index order so a fixed seed always produces the
	// same split.
	for _, idx := range byClass {
		if len(idx) == 0 {
			continue
		}
		if len(idx) < 2 {
			return nil, nil, &DataError{
				Reason: fmt.Sprintf("letter %q has only %d sample(s); at least 2 are required to stratify", labels[idx[0]], len(idx)),
			}
		}

		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(testFraction*float64(len(idx)) + 0.5)
		if nTest < 1 {
			nTest = 1
		}
		if nTest > len(idx)-1 {
			nTest = len(idx) - 1
		}

		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}
	return trainIdx, testIdx, nil
}

// classWeights computes per-class loss weights inversely proportional to
// class frequency: weight = N / (K * n_c). Letters with few collected samples
// pull more weight, countering label imbalance.
func classWeights(y []int, numClasses int) []float64 {
	counts := make([]int, numClasses)
	for _, c := range y {
		counts[c]++
	}

	weights := make([]float64, numClasses)
	n := float64(len(y))
	k := float64(numClasses)
	for c, count := range counts {
		if count > 0 {
			weights[c] = n / (k * float64(count))
		}
	}
	return weights
}

// rowsToDense assembles the selected rows of X into a matrix.
func rowsToDense(X [][]float64, idx []int) *mat.Dense {
	if len(idx) == 0 {
		return mat.NewDense(1, len(X[0]), nil)
	}
	m := mat.NewDense(len(idx), len(X[0]), nil)
	for i, row := range idx {
		m.SetRow(i, X[row])
	}
	return m
}

// pick selects the given indices out of y.
func pick(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
