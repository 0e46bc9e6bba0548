package layer

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/opt"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogSoftmax normalises each row into log-probabilities.
type LogSoftmax struct {
	size   int
	output *mat.Dense
}

// NewLogSoftmax creates a LogSoftmax over rows of the given width.
func NewLogSoftmax(size int) *LogSoftmax {
	return &LogSoftmax{size: size}
}

// Forward computes x - logsumexp(x) row by row.
func (l *LogSoftmax) Forward(x *mat.Dense, train bool) *mat.Dense {
	rows, cols := x.Dims()
	if cols != l.size {
		panic(fmt.Sprintf("LogSoftmax: input has %d columns, want %d", cols, l.size))
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		copy(row, x.RawRowView(i))
		floats.AddConst(-floats.LogSumExp(row), row)
	}
	l.output = out
	return out
}

// Backward computes g - softmax(x) * sum(g) row by row.
func (l *LogSoftmax) Backward(grad *mat.Dense) *mat.Dense {
	if l.output == nil {
		panic("LogSoftmax: Backward called before Forward")
	}
	rows, cols := grad.Dims()

	gradIn := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		g := grad.RawRowView(i)
		logp := l.output.RawRowView(i)
		dst := gradIn.RawRowView(i)
		total := floats.Sum(g)
		for j := range dst {
			dst[j] = g[j] - math.Exp(logp[j])*total
		}
	}
	return gradIn
}

// Params returns nil; LogSoftmax has no trainable state.
func (l *LogSoftmax) Params() []*opt.Param {
	return nil
}

// OutSize returns the row width.
func (l *LogSoftmax) OutSize() int {
	return l.size
}
