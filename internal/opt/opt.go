// Package opt provides optimization algorithms.
package opt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Param is a trainable tensor together with its gradient buffer.
// Value and Grad always have the same shape and contiguous storage.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// NewParam wraps value as a parameter with a zeroed gradient of the same shape.
func NewParam(name string, value *mat.Dense) *Param {
	r, c := value.Dims()
	return &Param{
		Name:  name,
		Value: value,
		Grad:  mat.NewDense(r, c, nil),
	}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// Len returns the number of scalar values held by the parameter.
func (p *Param) Len() int {
	r, c := p.Value.Dims()
	return r * c
}

// Optimizer updates parameters in place from their gradients.
type Optimizer interface {
	// Step applies one update to every parameter.
	Step(params []*Param)
}

// New returns the optimizer registered under name.
func New(name string, learningRate float64) (Optimizer, error) {
	switch name {
	case "adam":
		return NewAdam(learningRate), nil
	case "sgd":
		return &SGD{LearningRate: learningRate}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LearningRate float64
}

// Step computes params = params - lr * gradients in place.
func (s *SGD) Step(params []*Param) {
	for _, p := range params {
		floats.AddScaled(p.Value.RawMatrix().Data, -s.LearningRate, p.Grad.RawMatrix().Data)
	}
}

// Adam optimizer with bias-corrected first and second moments.
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Epsilon      float64 // Small constant for numerical stability

	moments   map[*Param]*moments
	iteration int
}

type moments struct {
	first  []float64
	second []float64
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Step applies one Adam update to every parameter.
// All parameters share the step counter used for bias correction.
func (a *Adam) Step(params []*Param) {
	if a.moments == nil {
		a.moments = make(map[*Param]*moments, len(params))
	}
	a.iteration++

	t := float64(a.iteration)
	stepSize := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))

	for _, p := range params {
		grad := p.Grad.RawMatrix().Data
		value := p.Value.RawMatrix().Data

		m, ok := a.moments[p]
		if !ok {
			m = &moments{
				first:  make([]float64, len(grad)),
				second: make([]float64, len(grad)),
			}
			a.moments[p] = m
		}

		// m = beta1*m + (1-beta1)*g
		floats.Scale(a.Beta1, m.first)
		floats.AddScaled(m.first, 1-a.Beta1, grad)

		// v = beta2*v + (1-beta2)*g^2
		floats.Scale(a.Beta2, m.second)
		for i, g := range grad {
			m.second[i] += (1 - a.Beta2) * g * g
		}

		for i := range value {
			value[i] -= stepSize * m.first[i] / (math.Sqrt(m.second[i]) + a.Epsilon)
		}
	}
}
