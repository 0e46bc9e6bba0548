// Package config holds the knobs of a training run.
package config

import (
	"strings"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/dataset"
	"github.com/pkg/errors"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	OutDir       string // where weights and samples are written; empty disables export
	Epochs       int
	BatchSize    int
	Seed         int64 // 0 picks a time based seed
	LearningRate float64
	Optimizer    string // "adam" or "sgd"
	LogEvery     int
	MetricsCSV   string
	MNISTURL     string
	CacheDir     string // empty uses the system temp dir
}

// Defaults returns the configuration of a plain run.
func Defaults() Config {
	return Config{
		Epochs:       1,
		BatchSize:    32,
		LearningRate: 0.01,
		Optimizer:    "adam",
		LogEvery:     100,
		MNISTURL:     dataset.DefaultURL,
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("lr must be > 0 (got %g)", c.LearningRate)
	}
	c.Optimizer = strings.ToLower(c.Optimizer)
	switch c.Optimizer {
	case "adam", "sgd":
	default:
		return errors.Errorf("unknown optimizer %q", c.Optimizer)
	}
	if c.MNISTURL == "" {
		return errors.New("mnist url must be set")
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 100
	}
	return nil
}
