// Package dataset downloads, caches and decodes the MNIST digit dataset.
package dataset

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/errs"
)

const (
	// ImageSize is the number of pixels in one 28x28 image.
	ImageSize = 28 * 28
	// NumClasses is the number of digit classes.
	NumClasses = 10

	imageHeader = 16
	labelHeader = 8
)

// DefaultURL is the base location of the four MNIST archives.
const DefaultURL = "https://ossci-datasets.s3.amazonaws.com/mnist/"

// Archive names relative to the base URL.
const (
	TrainImagesFile = "train-images-idx3-ubyte.gz"
	TrainLabelsFile = "train-labels-idx1-ubyte.gz"
	TestImagesFile  = "t10k-images-idx3-ubyte.gz"
	TestLabelsFile  = "t10k-labels-idx1-ubyte.gz"
)

// Split holds images as rows of ImageSize raw pixel bytes and one label per row.
type Split struct {
	Images []byte
	Labels []uint8
}

// Len returns the number of examples in s.
func (s Split) Len() int {
	return len(s.Labels)
}

// Image returns the pixels of example i without copying.
func (s Split) Image(i int) []byte {
	return s.Images[i*ImageSize : (i+1)*ImageSize]
}

// Dataset is the train and test splits of MNIST.
type Dataset struct {
	Train Split
	Test  Split
}

// Load fetches and decodes the four MNIST archives found under baseURL.
func Load(ctx context.Context, f Fetcher, baseURL string) (*Dataset, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	train, err := loadSplit(ctx, f, baseURL, "train", TrainImagesFile, TrainLabelsFile)
	if err != nil {
		return nil, err
	}
	test, err := loadSplit(ctx, f, baseURL, "test", TestImagesFile, TestLabelsFile)
	if err != nil {
		return nil, err
	}
	return &Dataset{Train: train, Test: test}, nil
}

func loadSplit(ctx context.Context, f Fetcher, baseURL, name, imagesFile, labelsFile string) (Split, error) {
	rawImages, err := f.Fetch(ctx, baseURL+imagesFile)
	if err != nil {
		return Split{}, err
	}
	rawLabels, err := f.Fetch(ctx, baseURL+labelsFile)
	if err != nil {
		return Split{}, err
	}

	images, err := ParseImages(rawImages)
	if err != nil {
		return Split{}, err
	}
	labels, err := ParseLabels(rawLabels)
	if err != nil {
		return Split{}, err
	}
	return NewSplit(name, images, labels)
}

// NewSplit checks that images and labels describe the same examples.
func NewSplit(name string, images []byte, labels []uint8) (Split, error) {
	rows := len(images) / ImageSize
	if rows != len(labels) {
		return Split{}, errs.Shape(name+" labels", fmt.Sprintf("%d labels", rows), fmt.Sprintf("%d", len(labels)))
	}
	return Split{Images: images, Labels: labels}, nil
}

// ParseImages decompresses an idx3 image archive and returns the pixel bytes
// after the header. The header content is not validated.
func ParseImages(raw []byte) ([]byte, error) {
	data, err := gunzip("images", raw)
	if err != nil {
		return nil, err
	}
	if len(data) < imageHeader {
		return nil, errs.Shape("images", fmt.Sprintf("at least %d bytes", imageHeader), fmt.Sprintf("%d bytes", len(data)))
	}
	pixels := data[imageHeader:]
	if len(pixels)%ImageSize != 0 {
		return nil, errs.Shape("images", fmt.Sprintf("multiple of %d bytes", ImageSize), fmt.Sprintf("%d bytes", len(pixels)))
	}
	return pixels, nil
}

// ParseLabels decompresses an idx1 label archive and returns the labels
// after the header.
func ParseLabels(raw []byte) ([]uint8, error) {
	data, err := gunzip("labels", raw)
	if err != nil {
		return nil, err
	}
	if len(data) < labelHeader {
		return nil, errs.Shape("labels", fmt.Sprintf("at least %d bytes", labelHeader), fmt.Sprintf("%d bytes", len(data)))
	}
	labels := data[labelHeader:]
	for i, l := range labels {
		if l >= NumClasses {
			return nil, errs.Shape(fmt.Sprintf("label %d", i), fmt.Sprintf("value below %d", NumClasses), fmt.Sprintf("%d", l))
		}
	}
	return labels, nil
}

func gunzip(what string, raw []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Shape(what, "gzip stream", err.Error())
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, errs.Shape(what, "gzip stream", err.Error())
	}
	return data, nil
}
