// Package loss provides batched classification losses.
package loss

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Loss scores a (batch, classes) output against integer class labels.
type Loss interface {
	// Forward returns the scalar loss for the batch.
	Forward(out *mat.Dense, labels []int) float64

	// Backward returns dL/d(out), with the same shape as out.
	Backward(out *mat.Dense, labels []int) *mat.Dense
}

// SparseCategoricalCrossEntropy is cross-entropy over log-probabilities
// with integer labels.
//
// The target matrix holds -C at each sample's true class (C = number of
// classes) and 0 elsewhere; the loss is the mean of target ⊙ out over all
// N*C entries. The -C factor cancels the averaging over classes, so the
// value equals the mean negative log-likelihood -(1/N)·Σ out[i, y_i].
type SparseCategoricalCrossEntropy struct{}

// Targets builds the (len(labels), numClasses) target matrix.
func Targets(labels []int, numClasses int) *mat.Dense {
	t := mat.NewDense(len(labels), numClasses, nil)
	for i, y := range labels {
		if y < 0 || y >= numClasses {
			panic(fmt.Sprintf("loss: label %d out of range [0, %d)", y, numClasses))
		}
		t.Set(i, y, -float64(numClasses))
	}
	return t
}

// Forward computes mean(targets ⊙ out).
func (SparseCategoricalCrossEntropy) Forward(out *mat.Dense, labels []int) float64 {
	rows, cols := checkDims(out, labels)

	var prod mat.Dense
	prod.MulElem(Targets(labels, cols), out)
	return mat.Sum(&prod) / float64(rows*cols)
}

// Backward returns targets / (N*C).
func (SparseCategoricalCrossEntropy) Backward(out *mat.Dense, labels []int) *mat.Dense {
	rows, cols := checkDims(out, labels)

	grad := Targets(labels, cols)
	grad.Scale(1/float64(rows*cols), grad)
	return grad
}

func checkDims(out *mat.Dense, labels []int) (int, int) {
	rows, cols := out.Dims()
	if rows != len(labels) {
		panic(fmt.Sprintf("loss: output has %d rows but %d labels", rows, len(labels)))
	}
	return rows, cols
}
