package model

import (
	"errors"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrClosed is returned by Extract after Close.
var ErrClosed = errors.New("extractor closed")

// Extractor runs images through a frozen ONNX feature network and returns the
// pooled embedding.
type Extractor struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewExtractor initializes the ONNX environment and loads the model at
// modelPath. libraryPath may be empty to use the runtime's default lookup.
func NewExtractor(modelPath, metadataPath, libraryPath string) (*Extractor, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	e := &Extractor{Metadata: metadata}
	if err := e.open(modelPath); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Extractor) open(modelPath string) error {
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(e.Metadata.InputShape...))
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}
	e.inputTensor = inputTensor

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(e.Metadata.OutputShape...))
	if err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}
	e.outputTensor = outputTensor

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{e.Metadata.InputName}, []string{e.Metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}
	e.session = session
	return nil
}

// Extract returns the feature vector of img. img must be
// Metadata.ImageSize pixels square. Calls are serialized because the session
// is bound to a single pair of tensors.
func (e *Extractor) Extract(img image.Image) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, ErrClosed
	}

	if err := Preprocess(img, e.Metadata, e.inputTensor.GetData()); err != nil {
		return nil, fmt.Errorf("preprocessing failed: %w", err)
	}

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := e.outputTensor.GetData()
	features := make([]float32, len(outputData))
	copy(features, outputData)
	return features, nil
}

// Dimension is the length of the vectors returned by Extract.
func (e *Extractor) Dimension() int {
	return e.Metadata.Dimension()
}

func (e *Extractor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inputTensor != nil {
		e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	if ort.IsInitialized() {
		ort.DestroyEnvironment()
	}
}
