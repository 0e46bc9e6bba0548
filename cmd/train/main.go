// Command train fits the MNIST classifier and optionally exports its weights.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/config"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/dataset"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/net"
	"github.com/FlavioCFOliveira/fcnn-mnist/internal/trainer"
	"github.com/klauspost/cpuid/v2"
)

func main() {
	def := config.Defaults()
	outDir := flag.String("out", def.OutDir, "Directory for w1/b1/w2/b2/samples .npy files (empty disables export)")
	epochs := flag.Int("epochs", def.Epochs, "Number of training epochs")
	batchSize := flag.Int("batch-size", def.BatchSize, "Batch size")
	seed := flag.Int64("seed", def.Seed, "PRNG seed (0 picks one from the clock)")
	lr := flag.Float64("lr", def.LearningRate, "Learning rate")
	optimizer := flag.String("optimizer", def.Optimizer, "Optimizer: adam or sgd")
	logEvery := flag.Int("log-every", def.LogEvery, "Log progress every N steps")
	metricsCSV := flag.String("metrics-csv", def.MetricsCSV, "Append per-epoch metrics to this CSV file")
	mnistURL := flag.String("mnist-url", def.MNISTURL, "Base URL of the MNIST archives")
	cacheDir := flag.String("cache-dir", def.CacheDir, "Download cache directory (default: system temp dir)")

	flag.Parse()

	cfg := config.Config{
		OutDir:       *outDir,
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		Seed:         *seed,
		LearningRate: *lr,
		Optimizer:    *optimizer,
		LogEvery:     *logEvery,
		MetricsCSV:   *metricsCSV,
		MNISTURL:     *mnistURL,
		CacheDir:     *cacheDir,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %+v", err)
	}

	log.Printf("cpu=%q cores=%d avx2=%t", cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.Supports(cpuid.AVX2))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := dataset.Load(ctx, dataset.NewCache(cfg.CacheDir, nil), cfg.MNISTURL)
	if err != nil {
		log.Fatalf("load mnist: %+v", err)
	}

	callbacks := []net.Callback{
		&net.Logger{Interval: cfg.LogEvery, Steps: ds.Train.Len() / cfg.BatchSize},
	}
	var csvLog *net.CSVLogger
	if cfg.MetricsCSV != "" {
		csvLog, err = net.NewCSVLogger(cfg.MetricsCSV, true)
		if err != nil {
			log.Fatalf("metrics csv: %+v", err)
		}
		callbacks = append(callbacks, csvLog)
	}

	res, err := trainer.Run(ctx, cfg, ds, os.Stdout, callbacks...)
	if err != nil {
		log.Fatalf("training failed: %+v", err)
	}
	if csvLog != nil {
		if err := csvLog.Close(); err != nil {
			log.Fatalf("metrics csv: %+v", err)
		}
	}
	if err := res.Network.Summary(log.Writer()); err != nil {
		log.Fatalf("summary: %+v", err)
	}

	if cfg.OutDir == "" {
		return
	}
	if err := trainer.Export(cfg.OutDir, res.Network, ds.Test, os.Stdout); err != nil {
		log.Fatalf("export: %+v", err)
	}
}
