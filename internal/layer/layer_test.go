// Package layer provides unit tests for the dense and log-softmax layers.
package layer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/activations"
	"gonum.org/v1/gonum/mat"
)

func randomMatrix(rng *rand.Rand, rows, cols int, scale float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * scale
	}
	return mat.NewDense(rows, cols, data)
}

// weightedSum returns sum(out ⊙ r), the scalar used by the gradient checks.
func weightedSum(out, r *mat.Dense) float64 {
	var prod mat.Dense
	prod.MulElem(out, r)
	return mat.Sum(&prod)
}

// TestDenseForwardShape tests (batch, in) -> (batch, out) for several batch sizes.
func TestDenseForwardShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense(10, 5, activations.Linear{}, rng)

	for _, batch := range []int{1, 2, 7, 32} {
		out := d.Forward(mat.NewDense(batch, 10, nil), false)
		r, c := out.Dims()
		if r != batch || c != 5 {
			t.Errorf("batch %d: output shape = (%d, %d), want (%d, 5)", batch, r, c, batch)
		}
	}
}

// TestDenseForward tests xW + b with hand-set weights.
func TestDenseForward(t *testing.T) {
	d := NewDense(2, 2, activations.Linear{}, nil)

	// Identity weights
	d.Weights().Set(0, 0, 1)
	d.Weights().Set(0, 1, 0)
	d.Weights().Set(1, 0, 0)
	d.Weights().Set(1, 1, 1)
	d.Biases().Set(0, 0, 0.5)
	d.Biases().Set(0, 1, -1)

	out := d.Forward(mat.NewDense(2, 2, []float64{1, 2, 3, 4}), true)

	expected := []float64{1.5, 1, 3.5, 3}
	for i, want := range expected {
		if got := out.RawMatrix().Data[i]; math.Abs(got-want) > 1e-12 {
			t.Errorf("output[%d] = %v, want %v", i, got, want)
		}
	}
}

// TestDenseReLU6Clips tests the activation is applied after the affine map.
func TestDenseReLU6Clips(t *testing.T) {
	d := NewDense(1, 3, activations.ReLU6{}, nil)
	d.Weights().Set(0, 0, -1)
	d.Weights().Set(0, 1, 1)
	d.Weights().Set(0, 2, 10)

	out := d.Forward(mat.NewDense(1, 1, []float64{2}), true)

	expected := []float64{0, 2, 6}
	for j, want := range expected {
		if got := out.At(0, j); got != want {
			t.Errorf("output[%d] = %v, want %v", j, got, want)
		}
	}
}

// TestDenseInitialisation tests zero biases and scaled random weights.
func TestDenseInitialisation(t *testing.T) {
	d := NewDense(784, 64, activations.ReLU6{}, rand.New(rand.NewSource(7)))

	if mat.Sum(d.Biases()) != 0 {
		t.Error("biases should start at zero")
	}
	r, c := d.Weights().Dims()
	if r != 784 || c != 64 {
		t.Fatalf("weights shape = (%d, %d), want (784, 64)", r, c)
	}

	var sumSq float64
	for _, w := range d.Weights().RawMatrix().Data {
		sumSq += w * w
	}
	std := math.Sqrt(sumSq / float64(r*c))
	want := 1 / math.Sqrt(784)
	if math.Abs(std-want) > 0.1*want {
		t.Errorf("weight std = %v, want about %v", std, want)
	}
}

// TestDenseBackwardMatchesFiniteDifference checks every gradient against central differences.
func TestDenseBackwardMatchesFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	d := NewDense(4, 3, activations.ReLU6{}, rng)
	// Keep pre-activations away from the ReLU6 kinks.
	d.Weights().Scale(2, d.Weights())
	x := randomMatrix(rng, 5, 4, 1)
	r := randomMatrix(rng, 5, 3, 1)

	d.Forward(x, true)
	gradIn := d.Backward(r)

	const h = 1e-6
	loss := func() float64 { return weightedSum(d.Forward(x, true), r) }

	for _, p := range d.Params() {
		values := p.Value.RawMatrix().Data
		grads := p.Grad.RawMatrix().Data
		for i := range values {
			orig := values[i]
			values[i] = orig + h
			plus := loss()
			values[i] = orig - h
			minus := loss()
			values[i] = orig
			numeric := (plus - minus) / (2 * h)
			if math.Abs(numeric-grads[i]) > 1e-5 {
				t.Errorf("%s[%d]: numeric %v, analytic %v", p.Name, i, numeric, grads[i])
			}
		}
	}

	xs := x.RawMatrix().Data
	for i := range xs {
		orig := xs[i]
		xs[i] = orig + h
		plus := loss()
		xs[i] = orig - h
		minus := loss()
		xs[i] = orig
		numeric := (plus - minus) / (2 * h)
		if got := gradIn.RawMatrix().Data[i]; math.Abs(numeric-got) > 1e-5 {
			t.Errorf("input[%d]: numeric %v, analytic %v", i, numeric, got)
		}
	}
}

// TestDenseBackwardAccumulates tests gradients add up across Backward calls.
func TestDenseBackwardAccumulates(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	d := NewDense(3, 2, activations.Linear{}, rng)
	x := randomMatrix(rng, 2, 3, 1)
	g := randomMatrix(rng, 2, 2, 1)

	d.Forward(x, true)
	d.Backward(g)
	once := mat.DenseCopyOf(d.Params()[0].Grad)
	d.Backward(g)
	twice := d.Params()[0].Grad

	var doubled mat.Dense
	doubled.Scale(2, once)
	if !mat.EqualApprox(&doubled, twice, 1e-12) {
		t.Error("second Backward should accumulate into the gradient")
	}
}

// TestDenseWrongInputPanics tests the column check.
func TestDenseWrongInputPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Forward with wrong width should panic")
		}
	}()
	NewDense(3, 2, activations.Linear{}, nil).Forward(mat.NewDense(1, 4, nil), false)
}

// TestLogSoftmaxRowsNormalised tests each row exponentiates to a distribution.
func TestLogSoftmaxRowsNormalised(t *testing.T) {
	l := NewLogSoftmax(3)
	x := mat.NewDense(2, 3, []float64{1, 2, 3, 1000, 1000, 1000})

	out := l.Forward(x, false)

	for i := 0; i < 2; i++ {
		var total float64
		for j := 0; j < 3; j++ {
			v := out.At(i, j)
			if v > 0 || math.IsNaN(v) {
				t.Errorf("out[%d][%d] = %v, want a finite log-probability", i, j, v)
			}
			total += math.Exp(v)
		}
		if math.Abs(total-1) > 1e-12 {
			t.Errorf("row %d sums to %v, want 1", i, total)
		}
	}
	if math.Abs(out.At(1, 0)-math.Log(1.0/3)) > 1e-12 {
		t.Errorf("uniform row = %v, want log(1/3)", out.At(1, 0))
	}
}

// TestLogSoftmaxBackwardMatchesFiniteDifference checks the row-wise Jacobian product.
func TestLogSoftmaxBackwardMatchesFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	l := NewLogSoftmax(4)
	x := randomMatrix(rng, 3, 4, 2)
	r := randomMatrix(rng, 3, 4, 1)

	l.Forward(x, true)
	gradIn := l.Backward(r)

	const h = 1e-6
	xs := x.RawMatrix().Data
	for i := range xs {
		orig := xs[i]
		xs[i] = orig + h
		plus := weightedSum(l.Forward(x, true), r)
		xs[i] = orig - h
		minus := weightedSum(l.Forward(x, true), r)
		xs[i] = orig
		numeric := (plus - minus) / (2 * h)
		if got := gradIn.RawMatrix().Data[i]; math.Abs(numeric-got) > 1e-5 {
			t.Errorf("input[%d]: numeric %v, analytic %v", i, numeric, got)
		}
	}
}

// TestTrainFlagDoesNotChangeOutput tests that no layer here depends on the mode.
func TestTrainFlagDoesNotChangeOutput(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	d := NewDense(6, 4, activations.ReLU6{}, rng)
	l := NewLogSoftmax(4)
	x := randomMatrix(rng, 3, 6, 1)

	train := l.Forward(d.Forward(x, true), true)
	eval := l.Forward(d.Forward(x, false), false)

	if !mat.Equal(train, eval) {
		t.Error("train and eval outputs differ")
	}
}
