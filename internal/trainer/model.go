package trainer

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/activations"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/dataset"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/layer"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/loss"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/net"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/opt"
	"gonum.org/v1/gonum/mat"
)

// HiddenSize is the width of the hidden layer.
const HiddenSize = 64

// NewModel builds the 784-64-10 classifier with weights drawn from rng.
func NewModel(rng *rand.Rand, learningRate float64, optimizer string) (*net.Network, error) {
	o, err := opt.New(optimizer, learningRate)
	if err != nil {
		return nil, err
	}
	return net.New([]layer.Layer{
		layer.NewDense(dataset.ImageSize, HiddenSize, activations.ReLU6{}, rng),
		layer.NewDense(HiddenSize, dataset.NumClasses, activations.Linear{}, rng),
		layer.NewLogSoftmax(dataset.NumClasses),
	}, loss.SparseCategoricalCrossEntropy{}, o), nil
}

// Params are the trained tensors of the model.
type Params struct {
	W1 *mat.Dense // (784, 64)
	B1 *mat.Dense // (1, 64)
	W2 *mat.Dense // (64, 10)
	B2 *mat.Dense // (1, 10)
}

// Weights returns the parameters of a network built by NewModel.
func Weights(n *net.Network) (Params, error) {
	var dense []*layer.Dense
	for _, l := range n.Layers() {
		if d, ok := l.(*layer.Dense); ok {
			dense = append(dense, d)
		}
	}
	if len(dense) != 2 {
		return Params{}, fmt.Errorf("model has %d dense layers, want 2", len(dense))
	}
	return Params{
		W1: dense[0].Weights(),
		B1: dense[0].Biases(),
		W2: dense[1].Weights(),
		B2: dense[1].Biases(),
	}, nil
}
