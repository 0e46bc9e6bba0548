// Package inference classifies images with exported weights in float32.
package inference

import (
	"fmt"
	"path/filepath"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/activations"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/errs"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/npy"
	"github.com/chewxy/math32"
)

// Model is a two layer classifier loaded from .npy files.
type Model struct {
	W1, B1 npy.Array // (in, hidden), (1, hidden)
	W2, B2 npy.Array // (hidden, classes), (1, classes)
}

// Load reads w1.npy, b1.npy, w2.npy and b2.npy from dir.
func Load(dir string) (*Model, error) {
	m := &Model{}
	targets := []struct {
		name string
		dst  *npy.Array
	}{
		{"w1.npy", &m.W1},
		{"b1.npy", &m.B1},
		{"w2.npy", &m.W2},
		{"b2.npy", &m.B2},
	}
	for _, t := range targets {
		a, err := npy.Read(filepath.Join(dir, t.name))
		if err != nil {
			return nil, err
		}
		*t.dst = a
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) check() error {
	hidden, classes := m.W1.Cols, m.W2.Cols
	switch {
	case m.B1.Rows != 1 || m.B1.Cols != hidden:
		return errs.Shape("b1", fmt.Sprintf("(1, %d)", hidden), fmt.Sprintf("(%d, %d)", m.B1.Rows, m.B1.Cols))
	case m.W2.Rows != hidden:
		return errs.Shape("w2", fmt.Sprintf("%d rows", hidden), fmt.Sprintf("%d", m.W2.Rows))
	case m.B2.Rows != 1 || m.B2.Cols != classes:
		return errs.Shape("b2", fmt.Sprintf("(1, %d)", classes), fmt.Sprintf("(%d, %d)", m.B2.Rows, m.B2.Cols))
	}
	return nil
}

// InSize returns the number of values the model expects per input row.
func (m *Model) InSize() int {
	return m.W1.Rows
}

// Probabilities returns the softmax class distribution for one input row.
func (m *Model) Probabilities(x []float32) []float32 {
	hidden := affine(x, m.W1, m.B1)
	for i, v := range hidden {
		hidden[i] = math32.Min(math32.Max(v, 0), activations.ReLU6Cap)
	}
	return softmax(affine(hidden, m.W2, m.B2))
}

// Predict returns the most likely class of every row of x.
func (m *Model) Predict(x npy.Array) ([]int, error) {
	if x.Cols != m.InSize() {
		return nil, errs.Shape("input", fmt.Sprintf("%d columns", m.InSize()), fmt.Sprintf("%d", x.Cols))
	}
	classes := make([]int, x.Rows)
	for i := range classes {
		classes[i] = argmax(m.Probabilities(x.Row(i)))
	}
	return classes, nil
}

// affine computes x·w + b for a single row.
func affine(x []float32, w, b npy.Array) []float32 {
	out := make([]float32, w.Cols)
	copy(out, b.Data)
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		row := w.Row(i)
		for j, wij := range row {
			out[j] += xi * wij
		}
	}
	return out
}

func softmax(z []float32) []float32 {
	maxVal := z[0]
	for _, v := range z[1:] {
		maxVal = math32.Max(maxVal, v)
	}
	var sum float32
	for i, v := range z {
		z[i] = math32.Exp(v - maxVal)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
	return z
}

func argmax(p []float32) int {
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}
