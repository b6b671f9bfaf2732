package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tensor layouts accepted in Metadata.Layout.
const (
	LayoutNHWC = "NHWC"
	LayoutNCHW = "NCHW"
)

// Preprocessing modes accepted in Metadata.Preprocess.
const (
	// PreprocessCaffe is the Keras VGG preprocessing: BGR order, ImageNet
	// mean subtracted, no scaling.
	PreprocessCaffe = "caffe"
	// PreprocessTorch scales to [0,1] and standardizes with ImageNet mean/std.
	PreprocessTorch = "torch"
	// PreprocessUnit only scales to [0,1].
	PreprocessUnit = "unit"
)

// Metadata describes the exported feature extractor.
type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
	Layout      string  `json:"layout"`
	Preprocess  string  `json:"preprocess"`
	ImageSize   int     `json:"image_size"`
}

// LoadMetadata reads and validates a metadata file.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	metadata.applyDefaults()

	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

func (m *Metadata) applyDefaults() {
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if m.Layout == "" {
		m.Layout = LayoutNHWC
	}
	if m.Preprocess == "" {
		m.Preprocess = PreprocessCaffe
	}
}

// Validate checks that the shapes agree with the layout and image size.
func (m Metadata) Validate() error {
	if m.ImageSize <= 0 {
		return fmt.Errorf("invalid image_size %d", m.ImageSize)
	}
	if len(m.InputShape) != 4 || m.InputShape[0] != 1 {
		return fmt.Errorf("input_shape must be [1, ...] with 4 dimensions, got %v", m.InputShape)
	}

	size := int64(m.ImageSize)
	switch m.Layout {
	case LayoutNHWC:
		if m.InputShape[1] != size || m.InputShape[2] != size || m.InputShape[3] != 3 {
			return fmt.Errorf("input_shape %v does not match NHWC %dx%dx3", m.InputShape, size, size)
		}
	case LayoutNCHW:
		if m.InputShape[1] != 3 || m.InputShape[2] != size || m.InputShape[3] != size {
			return fmt.Errorf("input_shape %v does not match NCHW 3x%dx%d", m.InputShape, size, size)
		}
	default:
		return fmt.Errorf("unknown layout %q", m.Layout)
	}

	switch m.Preprocess {
	case PreprocessCaffe, PreprocessTorch, PreprocessUnit:
	default:
		return fmt.Errorf("unknown preprocess mode %q", m.Preprocess)
	}

	if m.Dimension() <= 0 {
		return fmt.Errorf("invalid output_shape %v", m.OutputShape)
	}
	return nil
}

// Dimension is the length of the feature vector, i.e. the product of the
// output shape.
func (m Metadata) Dimension() int {
	if len(m.OutputShape) == 0 {
		return 0
	}
	n := 1
	for _, dim := range m.OutputShape {
		if dim <= 0 {
			return 0
		}
		n *= int(dim)
	}
	return n
}
