// Package npy reads and writes 2-D float32 arrays in NumPy's .npy format.
package npy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/errs"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Array is a row-major 2-D float32 array.
type Array struct {
	Rows int
	Cols int
	Data []float32
}

// FromMatrix converts m to a float32 Array.
func FromMatrix(m mat.Matrix) Array {
	r, c := m.Dims()
	a := Array{Rows: r, Cols: c, Data: make([]float32, r*c)}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a.Data[i*c+j] = float32(m.At(i, j))
		}
	}
	return a
}

// Row returns row i of a without copying.
func (a Array) Row(i int) []float32 {
	return a.Data[i*a.Cols : (i+1)*a.Cols]
}

func (a Array) check() error {
	if a.Rows <= 0 || a.Cols <= 0 || len(a.Data) != a.Rows*a.Cols {
		return errs.Shape("npy array", fmt.Sprintf("%dx%d values", a.Rows, a.Cols), fmt.Sprintf("%d", len(a.Data)))
	}
	return nil
}

// Encode writes a to w.
func Encode(w io.Writer, a Array) error {
	if err := a.check(); err != nil {
		return err
	}
	t := tensor.New(tensor.WithShape(a.Rows, a.Cols), tensor.WithBacking(a.Data))
	return t.WriteNpy(w)
}

// Decode reads a 2-D float32 array from r.
func Decode(r io.Reader) (Array, error) {
	t := new(tensor.Dense)
	if err := t.ReadNpy(r); err != nil {
		return Array{}, err
	}
	if t.Dtype() != tensor.Float32 {
		return Array{}, errs.Shape("npy dtype", "float32", t.Dtype().String())
	}
	shape := t.Shape()
	if len(shape) != 2 {
		return Array{}, errs.Shape("npy shape", "2 dimensions", fmt.Sprintf("%v", shape))
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return Array{}, errs.Shape("npy data", "[]float32", fmt.Sprintf("%T", t.Data()))
	}
	return Array{Rows: shape[0], Cols: shape[1], Data: data}, nil
}

// Write stores a at path, replacing any existing file. The data goes to a
// temporary file in the same directory first, so path never holds a
// partially written array.
func Write(path string, a Array) error {
	if err := a.check(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.IO("create", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, a); err != nil {
		tmp.Close()
		return errs.IO("write", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errs.IO("chmod", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.IO("close", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errs.IO("rename", path, err)
	}
	return nil
}

// Read loads the array stored at path.
func Read(path string) (Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return Array{}, errs.IO("open", path, err)
	}
	defer f.Close()

	a, err := Decode(f)
	if err != nil {
		var se *errs.ShapeError
		if errors.As(err, &se) {
			return Array{}, err
		}
		return Array{}, errs.IO("read", path, err)
	}
	return a, nil
}
