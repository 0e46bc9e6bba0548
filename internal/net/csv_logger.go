package net

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/errs"
)

var csvHeader = []string{"epoch", "loss", "accuracy", "time_seconds"}

// CSVLogger records one row of EpochStats per epoch. The first write
// failure stops further rows and is reported by Err and Close.
type CSVLogger struct {
	BaseCallback
	path   string
	file   *os.File
	writer *csv.Writer
	start  time.Time
	err    error
}

// NewCSVLogger opens path for writing, truncating it unless appendRows is
// set. The header is written when the file starts out empty.
func NewCSVLogger(path string, appendRows bool) (*CSVLogger, error) {
	mode := os.O_CREATE | os.O_WRONLY
	if appendRows {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, mode, 0o644)
	if err != nil {
		return nil, errs.IO("open", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errs.IO("stat", path, err)
	}

	c := &CSVLogger{path: path, file: file, writer: csv.NewWriter(file), start: time.Now()}
	if info.Size() == 0 {
		c.write(csvHeader)
	}
	if c.err != nil {
		file.Close()
		return nil, c.err
	}
	return c, nil
}

func (c *CSVLogger) OnTrainBegin(n *Network) {
	c.start = time.Now()
}

func (c *CSVLogger) OnEpochEnd(epoch int, stats EpochStats, n *Network) {
	c.write([]string{
		strconv.Itoa(epoch),
		strconv.FormatFloat(stats.Loss, 'f', 6, 64),
		strconv.FormatFloat(stats.Accuracy, 'f', 6, 64),
		strconv.FormatFloat(time.Since(c.start).Seconds(), 'f', 2, 64),
	})
}

// write flushes every row so a crashed run keeps the epochs it finished.
func (c *CSVLogger) write(record []string) {
	if c.err != nil {
		return
	}
	c.writer.Write(record)
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.err = errs.IO("write", c.path, err)
	}
}

// Err returns the first write failure, if any.
func (c *CSVLogger) Err() error {
	return c.err
}

// Close closes the file and returns the first failure seen while writing
// or closing.
func (c *CSVLogger) Close() error {
	if c.file == nil {
		return c.err
	}
	if err := c.file.Close(); err != nil && c.err == nil {
		c.err = errs.IO("close", c.path, err)
	}
	c.file = nil
	return c.err
}
