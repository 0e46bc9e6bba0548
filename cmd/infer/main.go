// Command infer classifies the rows of a .npy file with exported weights.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/inference"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/npy"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/trainer"
)

func main() {
	weights := flag.String("weights", "", "Directory holding w1/b1/w2/b2 .npy files")
	input := flag.String("input", "", "Input .npy of shape (rows, 784) (default: <weights>/samples.npy)")

	flag.Parse()

	if *weights == "" {
		log.Fatalf("-weights is required")
	}
	if *input == "" {
		*input = filepath.Join(*weights, trainer.SamplesFile)
	}

	m, err := inference.Load(*weights)
	if err != nil {
		log.Fatalf("load weights: %+v", err)
	}
	x, err := npy.Read(*input)
	if err != nil {
		log.Fatalf("read input: %+v", err)
	}
	classes, err := m.Predict(x)
	if err != nil {
		log.Fatalf("predict: %+v", err)
	}

	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = fmt.Sprint(c)
	}
	fmt.Println(strings.Join(out, " "))
}
