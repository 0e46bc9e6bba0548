// Package activations provides elementwise activation functions.
package activations

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) from the pre-activation value.
	Derivative(x float64) float64
}

// ReLU6Cap is the upper bound of ReLU6.
const ReLU6Cap = 6.0

// ReLU6 is a rectifier clipped to [0, 6].
type ReLU6 struct{}

// Activate computes min(max(0, x), 6)
func (r ReLU6) Activate(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= ReLU6Cap {
		return ReLU6Cap
	}
	return x
}

// Derivative returns 1 inside the open interval (0, 6), else 0.
func (r ReLU6) Derivative(x float64) float64 {
	if x > 0 && x < ReLU6Cap {
		return 1
	}
	return 0
}

// Linear is the identity activation.
type Linear struct{}

// Activate returns x unchanged.
func (l Linear) Activate(x float64) float64 {
	return x
}

// Derivative is always 1.
func (l Linear) Derivative(x float64) float64 {
	return 1
}

// Name returns a short identifier for act, used in model summaries.
func Name(act Activation) string {
	switch act.(type) {
	case ReLU6:
		return "ReLU6"
	case Linear:
		return "Linear"
	default:
		return "Custom"
	}
}
