package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrShapeMismatch is returned when an input tensor does not match the model's input shape.
var ErrShapeMismatch = errors.New("tensor shape mismatch")

// ErrClosed is returned by Predict after Close.
var ErrClosed = errors.New("model server closed")

// Layout is the memory order of the image tensor.
type Layout string

const (
	LayoutNHWC Layout = "nhwc"
	LayoutNCHW Layout = "nchw"
)

// Classifier maps a preprocessed image tensor to one score per class.
type Classifier interface {
	Predict(ctx context.Context, input []float32) ([]float32, error)
	Metadata() Metadata
}

type Metadata struct {
	InputName    string  `json:"input_name"`
	OutputName   string  `json:"output_name"`
	InputShape   []int64 `json:"input_shape"`
	OutputShape  []int64 `json:"output_shape"`
	Layout       Layout  `json:"layout"`
	ApplySoftmax bool    `json:"apply_softmax"`
}

// PredictionRequest carries an already preprocessed tensor.
type PredictionRequest struct {
	Image []float32 `json:"image"`
}

// DefaultMetadata describes the 128x128 RGB leaf classifier.
func DefaultMetadata(classes int) Metadata {
	return Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, 128, 128, 3},
		OutputShape: []int64{1, int64(classes)},
		Layout:      LayoutNHWC,
	}
}

// LoadMetadata reads the model description written next to the ONNX file.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if md.InputName == "" {
		md.InputName = "input"
	}
	if md.OutputName == "" {
		md.OutputName = "output"
	}
	if md.Layout == "" {
		md.Layout = LayoutNHWC
	}
	md.Layout = Layout(strings.ToLower(string(md.Layout)))

	if err := md.Validate(); err != nil {
		return Metadata{}, err
	}
	return md, nil
}

// Validate checks that the shapes describe a single RGB image in and one score vector out.
func (m Metadata) Validate() error {
	if len(m.InputShape) != 4 {
		return fmt.Errorf("input shape must have 4 dimensions, got %v", m.InputShape)
	}
	if m.InputShape[0] != 1 {
		return fmt.Errorf("input batch size must be 1, got %d", m.InputShape[0])
	}
	for _, d := range m.InputShape {
		if d <= 0 {
			return fmt.Errorf("input shape %v has a non-positive dimension", m.InputShape)
		}
	}

	switch m.Layout {
	case LayoutNHWC:
		if m.InputShape[3] != 3 {
			return fmt.Errorf("nhwc input must have 3 channels, got %d", m.InputShape[3])
		}
	case LayoutNCHW:
		if m.InputShape[1] != 3 {
			return fmt.Errorf("nchw input must have 3 channels, got %d", m.InputShape[1])
		}
	default:
		return fmt.Errorf("unknown tensor layout %q", m.Layout)
	}

	if len(m.OutputShape) == 0 || m.OutputWidth() <= 0 {
		return fmt.Errorf("output shape %v has no classes", m.OutputShape)
	}
	return nil
}

// ImageSize returns the spatial size (width, height) the model expects.
func (m Metadata) ImageSize() (int, int) {
	if m.Layout == LayoutNCHW {
		return int(m.InputShape[3]), int(m.InputShape[2])
	}
	return int(m.InputShape[2]), int(m.InputShape[1])
}

// InputSize is the number of float32 values in one input tensor.
func (m Metadata) InputSize() int {
	size := 1
	for _, d := range m.InputShape {
		size *= int(d)
	}
	return size
}

// OutputWidth is the number of classes scored by the model.
func (m Metadata) OutputWidth() int {
	if len(m.OutputShape) == 0 {
		return 0
	}
	return int(m.OutputShape[len(m.OutputShape)-1])
}
