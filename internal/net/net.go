// Package net provides the sequential network container used for training.
package net

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/activations"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/layer"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/loss"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/opt"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Network is a collection of layers that can be forwarded and backwarded.
type Network struct {
	layers []layer.Layer
	loss   loss.Loss
	opt    opt.Optimizer
}

// New creates a new neural network with the given layers.
func New(layers []layer.Layer, loss loss.Loss, optimizer opt.Optimizer) *Network {
	return &Network{
		layers: layers,
		loss:   loss,
		opt:    optimizer,
	}
}

// Forward performs a forward pass through all layers.
func (n *Network) Forward(x *mat.Dense, train bool) *mat.Dense {
	curr := x
	for _, l := range n.layers {
		curr = l.Forward(curr, train)
	}
	return curr
}

// Backward performs a backward pass through all layers.
func (n *Network) Backward(grad *mat.Dense) *mat.Dense {
	curr := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		curr = n.layers[i].Backward(curr)
	}
	return curr
}

// ZeroGrad clears the gradients of every parameter.
func (n *Network) ZeroGrad() {
	for _, p := range n.Params() {
		p.ZeroGrad()
	}
}

// Step performs one optimization step using the stored optimizer.
func (n *Network) Step() {
	n.opt.Step(n.Params())
}

// TrainBatch runs one training step on a batch and returns its loss.
// labels[i] is the class of row i of x.
func (n *Network) TrainBatch(x *mat.Dense, labels []int) float64 {
	out := n.Forward(x, true)
	l := n.loss.Forward(out, labels)

	n.ZeroGrad()
	n.Backward(n.loss.Backward(out, labels))
	n.Step()

	return l
}

// Predict returns the arg-max class of every row of x.
func (n *Network) Predict(x *mat.Dense) []int {
	out := n.Forward(x, false)
	rows, _ := out.Dims()
	classes := make([]int, rows)
	for i := range classes {
		classes[i] = floats.MaxIdx(out.RawRowView(i))
	}
	return classes
}

// Params returns all network parameters, first layer first.
func (n *Network) Params() []*opt.Param {
	var params []*opt.Param
	for _, l := range n.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// Layers returns the network's layers slice.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// Summary writes a table of the layers, their output width and parameter count.
func (n *Network) Summary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Layer (type)\tOutput Shape\tParam #")

	total := 0
	for i, l := range n.layers {
		count := 0
		for _, p := range l.Params() {
			count += p.Len()
		}
		total += count
		fmt.Fprintf(tw, "%s_%d\t(batch, %d)\t%d\n", layerType(l), i, l.OutSize(), count)
	}
	fmt.Fprintf(tw, "Total params: %d\t\t\n", total)
	return tw.Flush()
}

func layerType(l layer.Layer) string {
	switch v := l.(type) {
	case *layer.Dense:
		return "Dense[" + activations.Name(v.Activation()) + "]"
	case *layer.LogSoftmax:
		return "LogSoftmax"
	default:
		return fmt.Sprintf("%T", l)
	}
}
