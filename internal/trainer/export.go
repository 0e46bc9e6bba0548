package trainer

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/dataset"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/errs"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/net"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/npy"
	"gonum.org/v1/gonum/mat"
)

// NumSamples is how many test images Export stores next to the weights.
const NumSamples = 10

// File names written by Export.
const (
	W1File      = "w1.npy"
	B1File      = "b1.npy"
	W2File      = "w2.npy"
	B2File      = "b2.npy"
	SamplesFile = "samples.npy"
)

// Samples returns the first NumSamples test images ordered by label, with
// ties kept in dataset order, scaled into [0, 1].
func Samples(test dataset.Split) (*mat.Dense, []int, error) {
	n := min(NumSamples, test.Len())
	if n == 0 {
		return nil, nil, errs.Shape("test split", "at least 1 example", "0")
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return test.Labels[idx[a]] < test.Labels[idx[b]]
	})

	x := mat.NewDense(n, dataset.ImageSize, nil)
	labels := make([]int, n)
	for r, i := range idx {
		normalize(x.RawRowView(r), test.Image(i))
		labels[r] = int(test.Labels[i])
	}
	return x, labels, nil
}

// Export writes the network parameters and a handful of test samples as
// float32 .npy files under dir, creating it if needed and replacing any
// previous export. The sample labels are printed to out.
func Export(dir string, n *net.Network, test dataset.Split, out io.Writer) error {
	samples, labels, err := Samples(test)
	if err != nil {
		return err
	}
	p, err := Weights(n)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.IO("mkdir", dir, err)
	}

	files := []struct {
		name string
		m    mat.Matrix
	}{
		{W1File, p.W1},
		{B1File, p.B1},
		{W2File, p.W2},
		{B2File, p.B2},
		{SamplesFile, samples},
	}
	for _, f := range files {
		if err := npy.Write(filepath.Join(dir, f.name), npy.FromMatrix(f.m)); err != nil {
			return err
		}
	}

	log.Printf("exported weights dir=%s", dir)
	fmt.Fprintln(out, labels)
	return nil
}
