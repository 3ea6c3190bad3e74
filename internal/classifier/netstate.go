package classifier

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// denseState is the serializable form of one fully connected layer. Weights
// are row-major (in x out). Optimizer state is not persisted.
type denseState struct {
	In   int       `json:"in"`
	Out  int       `json:"out"`
	Relu bool      `json:"relu"`
	W    []float64 `json:"w"`
	B    []float64 `json:"b"`
}

// bnState is the serializable form of one batch normalization layer,
// including the running statistics used at inference time.
type bnState struct {
	Gamma   []float64 `json:"gamma"`
	Beta    []float64 `json:"beta"`
	RunMean []float64 `json:"run_mean"`
	RunVar  []float64 `json:"run_var"`
}

// networkState is a full, self-contained copy of the network parameters.
// Used both for early-stopping weight restoration and for persistence.
type networkState struct {
	InDim      int          `json:"in_dim"`
	NumClasses int          `json:"num_classes"`
	Layers     []denseState `json:"layers"`
	Norms      []bnState    `json:"norms"`
}

func copyFloats(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

func (d *dense) state() denseState {
	return denseState{
		In:   d.in,
		Out:  d.out,
		Relu: d.relu,
		W:    copyFloats(d.w.RawMatrix().Data),
		B:    copyFloats(d.b),
	}
}

func (d *dense) loadState(st denseState) error {
	if st.In != d.in || st.Out != d.out {
		return fmt.Errorf("layer shape %dx%d does not match stored %dx%d", d.in, d.out, st.In, st.Out)
	}
	if len(st.W) != d.in*d.out || len(st.B) != d.out {
		return fmt.Errorf("layer parameter count mismatch")
	}
	d.w = mat.NewDense(d.in, d.out, copyFloats(st.W))
	d.b = copyFloats(st.B)
	return nil
}

func (bn *batchNorm) state() bnState {
	return bnState{
		Gamma:   copyFloats(bn.gamma),
		Beta:    copyFloats(bn.beta),
		RunMean: copyFloats(bn.runMean),
		RunVar:  copyFloats(bn.runVar),
	}
}

func (bn *batchNorm) loadState(st bnState) error {
	if len(st.Gamma) != bn.dim || len(st.Beta) != bn.dim ||
		len(st.RunMean) != bn.dim || len(st.RunVar) != bn.dim {
		return fmt.Errorf("batch norm width does not match stored state")
	}
	bn.gamma = copyFloats(st.Gamma)
	bn.beta = copyFloats(st.Beta)
	bn.runMean = copyFloats(st.RunMean)
	bn.runVar = copyFloats(st.RunVar)
	return nil
}

// snapshot captures all learned parameters, including batch norm running
// statistics, so the best-seen weights can be restored after early stopping.
func (n *Network) snapshot() *networkState {
	return &networkState{
		InDim:      n.inDim,
		NumClasses: n.numClasses,
		Layers: []denseState{
			n.fc1.state(), n.fc2.state(), n.fc3.state(), n.head.state(),
		},
		Norms: []bnState{n.bn1.state(), n.bn2.state()},
	}
}

// restore writes a snapshot back into the network.
func (n *Network) restore(st *networkState) error {
	if len(st.Layers) != 4 || len(st.Norms) != 2 {
		return fmt.Errorf("unexpected network state shape: %d layers, %d norms", len(st.Layers), len(st.Norms))
	}
	layers := []*dense{n.fc1, n.fc2, n.fc3, n.head}
	for i, l := range layers {
		if err := l.loadState(st.Layers[i]); err != nil {
			return err
		}
	}
	if err := n.bn1.loadState(st.Norms[0]); err != nil {
		return err
	}
	return n.bn2.loadState(st.Norms[1])
}

// networkFromState rebuilds an inference-ready network from persisted
// parameters.
func networkFromState(st *networkState) (*Network, error) {
	if st.InDim <= 0 || st.NumClasses <= 0 {
		return nil, fmt.Errorf("invalid network dimensions %dx%d", st.InDim, st.NumClasses)
	}
	n := newNetwork(st.InDim, st.NumClasses, 0)
	if err := n.restore(st); err != nil {
		return nil, err
	}
	return n, nil
}
