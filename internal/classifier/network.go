package classifier

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Network hyperparameters. The architecture is fixed: three shrinking hidden
// layers with normalization and dropout between the wide ones, then a softmax
// head with one unit per letter class.
const (
	adamBeta1  = 0.9
	adamBeta2  = 0.999
	adamEps    = 1e-7
	bnEps      = 1e-3
	bnMomentum = 0.99
)

var hiddenSizes = [3]int{128, 64, 32}

var dropRates = [3]float64{0.3, 0.2, 0.2}

// dense is a fully connected layer with optional ReLU activation and Adam
// optimizer state.
type dense struct {
	in, out int
	relu    bool

	w *mat.Dense // in x out
	b []float64

	// Adam moments.
	mw, vw *mat.Dense
	mb, vb []float64

	// forward caches for backprop
	x *mat.Dense
	z *mat.Dense // pre-activation
}

// newDense initializes a layer with Glorot uniform weights.
func newDense(in, out int, relu bool, rng *rand.Rand) *dense {
	limit := math.Sqrt(6.0 / float64(in+out))
	w := mat.NewDense(in, out, nil)
	for i := 0; i < in; i++ {
		for j := 0; j < out; j++ {
			w.Set(i, j, (rng.Float64()*2-1)*limit)
		}
	}
	return &dense{
		in:   in,
		out:  out,
		relu: relu,
		w:    w,
		b:    make([]float64, out),
		mw:   mat.NewDense(in, out, nil),
		vw:   mat.NewDense(in, out, nil),
		mb:   make([]float64, out),
		vb:   make([]float64, out),
	}
}

func (d *dense) forward(x *mat.Dense, train bool) *mat.Dense {
	n, _ := x.Dims()
	z := mat.NewDense(n, d.out, nil)
	z.Mul(x, d.w)
	for i := 0; i < n; i++ {
		for j := 0; j < d.out; j++ {
			z.Set(i, j, z.At(i, j)+d.b[j])
		}
	}

	if train {
		d.x = x
		d.z = z
	}

	if !d.relu {
		return z
	}

	y := mat.NewDense(n, d.out, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d.out; j++ {
			y.Set(i, j, math.Max(0, z.At(i, j)))
		}
	}
	return y
}

// backward consumes the gradient w.r.t. this layer's output, updates the
// parameters with Adam, and returns the gradient w.r.t. the input.
func (d *dense) backward(dy *mat.Dense, lr float64, step int) *mat.Dense {
	n, _ := dy.Dims()

	if d.relu {
		masked := mat.NewDense(n, d.out, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < d.out; j++ {
				if d.z.At(i, j) > 0 {
					masked.Set(i, j, dy.At(i, j))
				}
			}
		}
		dy = masked
	}

	gw := mat.NewDense(d.in, d.out, nil)
	gw.Mul(d.x.T(), dy)

	gb := make([]float64, d.out)
	for i := 0; i < n; i++ {
		for j := 0; j < d.out; j++ {
			gb[j] += dy.At(i, j)
		}
	}

	dx := mat.NewDense(n, d.in, nil)
	dx.Mul(dy, d.w.T())

	// Adam update
	c1 := 1 - math.Pow(adamBeta1, float64(step))
	c2 := 1 - math.Pow(adamBeta2, float64(step))
	for i := 0; i < d.in; i++ {
		for j := 0; j < d.out; j++ {
			g := gw.At(i, j)
			m := adamBeta1*d.mw.At(i, j) + (1-adamBeta1)*g
			v := adamBeta2*d.vw.At(i, j) + (1-adamBeta2)*g*g
			d.mw.Set(i, j, m)
			d.vw.Set(i, j, v)
			d.w.Set(i, j, d.w.At(i, j)-lr*(m/c1)/(math.Sqrt(v/c2)+adamEps))
		}
	}
	for j := 0; j < d.out; j++ {
		g := gb[j]
		d.mb[j] = adamBeta1*d.mb[j] + (1-adamBeta1)*g
		d.vb[j] = adamBeta2*d.vb[j] + (1-adamBeta2)*g*g
		d.b[j] -= lr * (d.mb[j] / c1) / (math.Sqrt(d.vb[j]/c2) + adamEps)
	}

	return dx
}

// batchNorm normalizes activations per feature over the batch during training
// and with running statistics at inference time.
type batchNorm struct {
	dim int

	gamma, beta     []float64
	runMean, runVar []float64
	mGamma, vGamma  []float64
	mBeta, vBeta    []float64
	xhat            *mat.Dense
	invStd          []float64
}

func newBatchNorm(dim int) *batchNorm {
	bn := &batchNorm{
		dim:     dim,
		gamma:   make([]float64, dim),
		beta:    make([]float64, dim),
		runMean: make([]float64, dim),
		runVar:  make([]float64, dim),
		mGamma:  make([]float64, dim),
		vGamma:  make([]float64, dim),
		mBeta:   make([]float64, dim),
		vBeta:   make([]float64, dim),
	}
	for i := range bn.gamma {
		bn.gamma[i] = 1
		bn.runVar[i] = 1
	}
	return bn
}

func (bn *batchNorm) forward(x *mat.Dense, train bool) *mat.Dense {
	n, _ := x.Dims()
	y := mat.NewDense(n, bn.dim, nil)

	if !train {
		for j := 0; j < bn.dim; j++ {
			invStd := 1 / math.Sqrt(bn.runVar[j]+bnEps)
			for i := 0; i < n; i++ {
				xhat := (x.At(i, j) - bn.runMean[j]) * invStd
				y.Set(i, j, bn.gamma[j]*xhat+bn.beta[j])
			}
		}
		return y
	}

	bn.xhat = mat.NewDense(n, bn.dim, nil)
	bn.invStd = make([]float64, bn.dim)

	for j := 0; j < bn.dim; j++ {
		var mean float64
		for i := 0; i < n; i++ {
			mean += x.At(i, j)
		}
		mean /= float64(n)

		var variance float64
		for i := 0; i < n; i++ {
			d := x.At(i, j) - mean
			variance += d * d
		}
		variance /= float64(n)

		invStd := 1 / math.Sqrt(variance+bnEps)
		bn.invStd[j] = invStd

		for i := 0; i < n; i++ {
			xhat := (x.At(i, j) - mean) * invStd
			bn.xhat.Set(i, j, xhat)
			y.Set(i, j, bn.gamma[j]*xhat+bn.beta[j])
		}

		bn.runMean[j] = bnMomentum*bn.runMean[j] + (1-bnMomentum)*mean
		bn.runVar[j] = bnMomentum*bn.runVar[j] + (1-bnMomentum)*variance
	}
	return y
}

func (bn *batchNorm) backward(dy *mat.Dense, lr float64, step int) *mat.Dense {
	n, _ := dy.Dims()
	fn := float64(n)

	dx := mat.NewDense(n, bn.dim, nil)
	c1 := 1 - math.Pow(adamBeta1, float64(step))
	c2 := 1 - math.Pow(adamBeta2, float64(step))

	for j := 0; j < bn.dim; j++ {
		var dGamma, dBeta float64
		for i := 0; i < n; i++ {
			dGamma += dy.At(i, j) * bn.xhat.At(i, j)
			dBeta += dy.At(i, j)
		}

		scale := bn.gamma[j] * bn.invStd[j]
		for i := 0; i < n; i++ {
			dx.Set(i, j, scale*(dy.At(i, j)-dBeta/fn-bn.xhat.At(i, j)*dGamma/fn))
		}

		bn.mGamma[j] = adamBeta1*bn.mGamma[j] + (1-adamBeta1)*dGamma
		bn.vGamma[j] = adamBeta2*bn.vGamma[j] + (1-adamBeta2)*dGamma*dGamma
		bn.gamma[j] -= lr * (bn.mGamma[j] / c1) / (math.Sqrt(bn.vGamma[j]/c2) + adamEps)

		bn.mBeta[j] = adamBeta1*bn.mBeta[j] + (1-adamBeta1)*dBeta
		bn.vBeta[j] = adamBeta2*bn.vBeta[j] + (1-adamBeta2)*dBeta*dBeta
		bn.beta[j] -= lr * (bn.mBeta[j] / c1) / (math.Sqrt(bn.vBeta[j]/c2) + adamEps)
	}
	return dx
}

// dropout randomly zeroes units during training, scaling survivors so the
// expected activation is unchanged (inverted dropout). Inference is identity.
type dropout struct {
	rate float64
	mask *mat.Dense
}

func (d *dropout) forward(x *mat.Dense, train bool, rng *rand.Rand) *mat.Dense {
	if !train || d.rate <= 0 {
		return x
	}

	n, cols := x.Dims()
	keep := 1 - d.rate
	d.mask = mat.NewDense(n, cols, nil)
	y := mat.NewDense(n, cols, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < cols; j++ {
			if rng.Float64() < keep {
				d.mask.Set(i, j, 1/keep)
				y.Set(i, j, x.At(i, j)/keep)
			}
		}
	}
	return y
}

func (d *dropout) backward(dy *mat.Dense) *mat.Dense {
	if d.mask == nil {
		return dy
	}
	n, cols := dy.Dims()
	dx := mat.NewDense(n, cols, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < cols; j++ {
			dx.Set(i, j, dy.At(i, j)*d.mask.At(i, j))
		}
	}
	return dx
}

// Network is the feed-forward classifier: 63 input features through dense
// layers of 128, 64 and 32 ReLU units (batch-normalized and dropout-regularized
// between the first three) into a softmax over the letter classes.
type Network struct {
	inDim      int
	numClasses int

	fc1, fc2, fc3, head *dense
	bn1, bn2            *batchNorm
	do1, do2, do3       *dropout

	rng  *rand.Rand
	step int
}

// newNetwork builds an untrained network with the given input width and class
// count. The seed fixes weight initialization and dropout masks.
func newNetwork(inDim, numClasses int, seed int64) *Network {
	rng := rand.New(rand.NewSource(seed))
	return &Network{
		inDim:      inDim,
		numClasses: numClasses,
		fc1:        newDense(inDim, hiddenSizes[0], true, rng),
		fc2:        newDense(hiddenSizes[0], hiddenSizes[1], true, rng),
		fc3:        newDense(hiddenSizes[1], hiddenSizes[2], true, rng),
		head:       newDense(hiddenSizes[2], numClasses, false, rng),
		bn1:        newBatchNorm(hiddenSizes[0]),
		bn2:        newBatchNorm(hiddenSizes[1]),
		do1:        &dropout{rate: dropRates[0]},
		do2:        &dropout{rate: dropRates[1]},
		do3:        &dropout{rate: dropRates[2]},
		rng:        rng,
	}
}

// forward runs a batch through the network and returns per-row class
// probabilities.
func (n *Network) forward(x *mat.Dense, train bool) *mat.Dense {
	h := n.fc1.forward(x, train)
	h = n.bn1.forward(h, train)
	h = n.do1.forward(h, train, n.rng)

	h = n.fc2.forward(h, train)
	h = n.bn2.forward(h, train)
	h = n.do2.forward(h, train, n.rng)

	h = n.fc3.forward(h, train)
	h = n.do3.forward(h, train, n.rng)

	logits := n.head.forward(h, train)
	return softmax(logits)
}

// softmax converts logits to row-wise probability distributions. The row max
// is subtracted first for numerical stability.
func softmax(logits *mat.Dense) *mat.Dense {
	rows, cols := logits.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		max := logits.At(i, 0)
		for j := 1; j < cols; j++ {
			if logits.At(i, j) > max {
				max = logits.At(i, j)
			}
		}
		var sum float64
		for j := 0; j < cols; j++ {
			e := math.Exp(logits.At(i, j) - max)
			out.Set(i, j, e)
			sum += e
		}
		for j := 0; j < cols; j++ {
			out.Set(i, j, out.At(i, j)/sum)
		}
	}
	return out
}

// trainBatch runs one weighted cross-entropy gradient step over a mini-batch
// and returns the batch loss. weights carries one per-sample loss weight
// (the class weight of the sample's label).
func (n *Network) trainBatch(x *mat.Dense, y []int, weights []float64, lr float64) float64 {
	rows, _ := x.Dims()
	probs := n.forward(x, true)

	var loss float64
	dLogits := mat.NewDense(rows, n.numClasses, nil)
	for i := 0; i < rows; i++ {
		p := math.Max(probs.At(i, y[i]), 1e-12)
		loss += -weights[i] * math.Log(p)
		for j := 0; j < n.numClasses; j++ {
			target := 0.0
			if j == y[i] {
				target = 1.0
			}
			dLogits.Set(i, j, weights[i]*(probs.At(i, j)-target)/float64(rows))
		}
	}
	loss /= float64(rows)

	n.step++
	d := n.head.backward(dLogits, lr, n.step)
	d = n.do3.backward(d)
	d = n.fc3.backward(d, lr, n.step)
	d = n.do2.backward(d)
	d = n.bn2.backward(d, lr, n.step)
	d = n.fc2.backward(d, lr, n.step)
	d = n.do1.backward(d)
	d = n.bn1.backward(d, lr, n.step)
	n.fc1.backward(d, lr, n.step)

	return loss
}

// loss computes the unweighted mean cross-entropy over a set in inference
// mode. Used as the early-stopping validation signal.
func (n *Network) loss(x *mat.Dense, y []int) float64 {
	rows, _ := x.Dims()
	probs := n.forward(x, false)
	var total float64
	for i := 0; i < rows; i++ {
		total += -math.Log(math.Max(probs.At(i, y[i]), 1e-12))
	}
	return total / float64(rows)
}

// accuracy computes argmax accuracy over a set in inference mode.
func (n *Network) accuracy(x *mat.Dense, y []int) float64 {
	rows, _ := x.Dims()
	probs := n.forward(x, false)
	correct := 0
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < n.numClasses; j++ {
			if probs.At(i, j) > probs.At(i, best) {
				best = j
			}
		}
		if best == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(rows)
}

// Predict runs a single scaled feature vector through the network and returns
// the class probability distribution.
func (n *Network) Predict(features []float64) ([]float64, error) {
	if len(features) != n.inDim {
		return nil, &InferenceError{Err: fmt.Errorf("feature width %d does not match network input %d", len(features), n.inDim)}
	}
	x := mat.NewDense(1, n.inDim, features)
	probs := n.forward(x, false)
	out := make([]float64, n.numClasses)
	for j := 0; j < n.numClasses; j++ {
		out[j] = probs.At(0, j)
	}
	return out, nil
}

// NumClasses returns the width of the softmax head.
func (n *Network) NumClasses() int {
	return n.numClasses
}
