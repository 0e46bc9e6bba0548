package net

import (
	"log"
	"time"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/metrics"
)

// BatchStats describes one completed training step.
type BatchStats struct {
	Loss        float64
	Size        int
	DataTime    time.Duration
	ComputeTime time.Duration
}

// EpochStats describes one completed epoch.
type EpochStats struct {
	Loss     float64 // mean training loss over the epoch
	Accuracy float64 // test accuracy after the epoch
}

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(epoch int, stats EpochStats, n *Network)
	OnBatchEnd(batch int, stats BatchStats, n *Network)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(n *Network)                            {}
func (c BaseCallback) OnTrainEnd(n *Network)                              {}
func (c BaseCallback) OnEpochBegin(epoch int, n *Network)                 {}
func (c BaseCallback) OnEpochEnd(epoch int, stats EpochStats, n *Network) {}
func (c BaseCallback) OnBatchEnd(batch int, stats BatchStats, n *Network) {}

// Logger logs training progress every Interval batches.
type Logger struct {
	BaseCallback
	Interval int
	Steps    int // steps per epoch

	epoch  int
	window metrics.Window
}

func (c *Logger) OnEpochBegin(epoch int, n *Network) {
	c.epoch = epoch
	c.window = metrics.Window{}
}

func (c *Logger) OnBatchEnd(batch int, stats BatchStats, n *Network) {
	c.window.Record(stats.Size, stats.DataTime, stats.ComputeTime, stats.Loss)
	last := c.Steps > 0 && batch+1 == c.Steps
	if c.Interval <= 0 || (c.window.Steps() < c.Interval && !last) {
		return
	}
	snap := c.window.Snapshot()
	log.Printf("epoch=%d step=%d/%d loss=%.4f last_loss=%.4f images_per_sec=%.1f data_ms=%.3f compute_ms=%.3f",
		c.epoch, batch+1, c.Steps, snap.AvgLoss, snap.LastLoss, snap.ImagesPerSec, snap.AvgDataMS, snap.AvgComputeMS)
}

func (c *Logger) OnEpochEnd(epoch int, stats EpochStats, n *Network) {
	log.Printf("epoch=%d train_loss=%.4f test_accuracy=%.4f", epoch, stats.Loss, stats.Accuracy)
}
