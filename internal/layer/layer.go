// Package layer provides batched neural network layers.
//
// Every layer works on a (batch, features) matrix and caches what it needs
// from the last Forward call to compute gradients in Backward. Backward
// accumulates into the parameter gradients, so callers clear them between
// optimizer steps.
package layer

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/activations"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/opt"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Layer is a neural network layer.
type Layer interface {
	// Forward maps a (batch, in) input to a (batch, out) output.
	// train reports whether the pass is part of a training step.
	Forward(x *mat.Dense, train bool) *mat.Dense

	// Backward takes dL/d(output) and returns dL/d(input).
	Backward(grad *mat.Dense) *mat.Dense

	// Params returns the trainable parameters, in a stable order.
	Params() []*opt.Param

	// OutSize returns the width of the layer output.
	OutSize() int
}

// Dense is a fully connected layer computing act(xW + b).
type Dense struct {
	// Shape: weights [in, out], biases [1, out]
	weights *opt.Param
	biases  *opt.Param
	act     activations.Activation
	inSize  int
	outSize int

	// Cached by Forward for Backward
	input  *mat.Dense
	preAct *mat.Dense
}

// NewDense creates a dense layer with normally distributed weights of
// standard deviation 1/sqrt(in) and zero biases. A nil rng uses the
// math/rand package source.
func NewDense(in, out int, act activations.Activation, rng *rand.Rand) *Dense {
	normal := rand.NormFloat64
	if rng != nil {
		normal = rng.NormFloat64
	}

	scale := 1 / math.Sqrt(float64(in))
	weights := make([]float64, in*out)
	for i := range weights {
		weights[i] = normal() * scale
	}

	return &Dense{
		weights: opt.NewParam("weight", mat.NewDense(in, out, weights)),
		biases:  opt.NewParam("bias", mat.NewDense(1, out, nil)),
		act:     act,
		inSize:  in,
		outSize: out,
	}
}

// Forward computes act(xW + b) for every row of x.
func (d *Dense) Forward(x *mat.Dense, train bool) *mat.Dense {
	rows, cols := x.Dims()
	if cols != d.inSize {
		panic(fmt.Sprintf("Dense: input has %d columns, want %d", cols, d.inSize))
	}
	d.input = x

	pre := mat.NewDense(rows, d.outSize, nil)
	pre.Mul(x, d.weights.Value)
	bias := d.biases.Value.RawRowView(0)
	for i := 0; i < rows; i++ {
		floats.Add(pre.RawRowView(i), bias)
	}
	d.preAct = pre

	out := mat.NewDense(rows, d.outSize, nil)
	out.Apply(func(_, _ int, v float64) float64 {
		return d.act.Activate(v)
	}, pre)
	return out
}

// Backward accumulates weight and bias gradients and returns the input gradient.
func (d *Dense) Backward(grad *mat.Dense) *mat.Dense {
	if d.preAct == nil {
		panic("Dense: Backward called before Forward")
	}
	rows, _ := grad.Dims()

	// dz = dL/dy * act'(z)
	dz := mat.NewDense(rows, d.outSize, nil)
	dz.Apply(func(i, j int, g float64) float64 {
		return g * d.act.Derivative(d.preAct.At(i, j))
	}, grad)

	// dL/dW = x^T dz
	var gradW mat.Dense
	gradW.Mul(d.input.T(), dz)
	d.weights.Grad.Add(d.weights.Grad, &gradW)

	// dL/db = column sums of dz
	gradB := d.biases.Grad.RawRowView(0)
	for i := 0; i < rows; i++ {
		floats.Add(gradB, dz.RawRowView(i))
	}

	// dL/dx = dz W^T
	gradIn := mat.NewDense(rows, d.inSize, nil)
	gradIn.Mul(dz, d.weights.Value.T())
	return gradIn
}

// Params returns the weights and the biases, in that order.
func (d *Dense) Params() []*opt.Param {
	return []*opt.Param{d.weights, d.biases}
}

// Weights returns the [in, out] weight matrix.
func (d *Dense) Weights() *mat.Dense {
	return d.weights.Value
}

// Biases returns the [1, out] bias row.
func (d *Dense) Biases() *mat.Dense {
	return d.biases.Value
}

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int {
	return d.outSize
}

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.Activation {
	return d.act
}
