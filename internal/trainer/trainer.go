// Package trainer runs the MNIST training loop and exports its results.
package trainer

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"time"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/config"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/dataset"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/net"
	"gonum.org/v1/gonum/mat"
)

// Result is the outcome of a finished run.
type Result struct {
	Network  *net.Network
	Seed     int64
	Accuracy float64 // test accuracy after the last epoch
}

// Run trains a fresh model on ds.Train for cfg.Epochs epochs and reports
// "Accuracy: <v>" on out after every epoch. Each epoch runs
// len(train)/batch steps over batches drawn uniformly with replacement.
// Run stops between steps once ctx is done.
func Run(ctx context.Context, cfg config.Config, ds *dataset.Dataset, out io.Writer, callbacks ...net.Callback) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	network, err := NewModel(rng, cfg.LearningRate, cfg.Optimizer)
	if err != nil {
		return nil, err
	}
	log.Printf("training seed=%d epochs=%d batch_size=%d optimizer=%s lr=%g train=%d test=%d",
		seed, cfg.Epochs, cfg.BatchSize, cfg.Optimizer, cfg.LearningRate, ds.Train.Len(), ds.Test.Len())

	for _, cb := range callbacks {
		cb.OnTrainBegin(network)
	}
	defer func() {
		for _, cb := range callbacks {
			cb.OnTrainEnd(network)
		}
	}()

	steps := ds.Train.Len() / cfg.BatchSize
	x := mat.NewDense(cfg.BatchSize, dataset.ImageSize, nil)
	labels := make([]int, cfg.BatchSize)

	res := &Result{Network: network, Seed: seed}
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for _, cb := range callbacks {
			cb.OnEpochBegin(epoch, network)
		}

		totalLoss := 0.0
		for step := 0; step < steps; step++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			startData := time.Now()
			for r := range labels {
				i := rng.Intn(ds.Train.Len())
				normalize(x.RawRowView(r), ds.Train.Image(i))
				labels[r] = int(ds.Train.Labels[i])
			}
			dataTime := time.Since(startData)

			startCompute := time.Now()
			l := network.TrainBatch(x, labels)
			computeTime := time.Since(startCompute)

			totalLoss += l
			stats := net.BatchStats{Loss: l, Size: cfg.BatchSize, DataTime: dataTime, ComputeTime: computeTime}
			for _, cb := range callbacks {
				cb.OnBatchEnd(step, stats, network)
			}
		}

		acc := Evaluate(network, ds.Test, cfg.BatchSize)
		fmt.Fprintln(out, "Accuracy:", acc)
		res.Accuracy = acc

		stats := net.EpochStats{Accuracy: acc}
		if steps > 0 {
			stats.Loss = totalLoss / float64(steps)
		}
		for _, cb := range callbacks {
			cb.OnEpochEnd(epoch, stats, network)
		}
	}
	return res, nil
}

// Evaluate returns the fraction of test examples classified correctly. The
// split is walked in consecutive batches of batchSize and a trailing
// partial batch is skipped.
func Evaluate(n *net.Network, test dataset.Split, batchSize int) float64 {
	if batchSize <= 0 {
		return 0
	}
	batches := test.Len() / batchSize
	if batches == 0 {
		return 0
	}

	x := mat.NewDense(batchSize, dataset.ImageSize, nil)
	correct := 0
	for b := 0; b < batches; b++ {
		for r := 0; r < batchSize; r++ {
			normalize(x.RawRowView(r), test.Image(b*batchSize+r))
		}
		for r, class := range n.Predict(x) {
			if class == int(test.Labels[b*batchSize+r]) {
				correct++
			}
		}
	}
	return float64(correct) / float64(batches*batchSize)
}

// normalize scales raw pixels into [0, 1].
func normalize(dst []float64, pixels []byte) {
	for j, p := range pixels {
		dst[j] = float64(p) / 255
	}
}
