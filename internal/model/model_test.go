package model

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMetadata(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMetadataDefaults(t *testing.T) {
	path := writeMetadata(t, `{"input_shape":[1,256,256,3],"output_shape":[1,512],"image_size":256}`)

	m, err := LoadMetadata(path)
	require.NoError(t, err)

	assert.Equal(t, "input", m.InputName)
	assert.Equal(t, "output", m.OutputName)
	assert.Equal(t, LayoutNHWC, m.Layout)
	assert.Equal(t, PreprocessCaffe, m.Preprocess)
	assert.Equal(t, 512, m.Dimension())
}

func TestLoadMetadataErrors(t *testing.T) {
	_, err := LoadMetadata(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadMetadata(writeMetadata(t, `{`))
	assert.Error(t, err)
}

func TestMetadataValidate(t *testing.T) {
	valid := Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, 3, 224, 224},
		OutputShape: []int64{1, 512},
		Layout:      LayoutNCHW,
		Preprocess:  PreprocessTorch,
		ImageSize:   224,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(m *Metadata)
	}{
		{"zero image size", func(m *Metadata) { m.ImageSize = 0 }},
		{"batch of two", func(m *Metadata) { m.InputShape = []int64{2, 3, 224, 224} }},
		{"three dims", func(m *Metadata) { m.InputShape = []int64{3, 224, 224} }},
		{"layout mismatch", func(m *Metadata) { m.Layout = LayoutNHWC }},
		{"size mismatch", func(m *Metadata) { m.ImageSize = 256 }},
		{"unknown layout", func(m *Metadata) { m.Layout = "HWC" }},
		{"unknown preprocess", func(m *Metadata) { m.Preprocess = "tf" }},
		{"empty output", func(m *Metadata) { m.OutputShape = nil }},
		{"dynamic output", func(m *Metadata) { m.OutputShape = []int64{-1, 512} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			m.InputShape = append([]int64(nil), valid.InputShape...)
			tt.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

func twoPixelImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{0, 0, 255, 255})
	return img
}

func TestPreprocessCaffeNHWC(t *testing.T) {
	m := Metadata{Layout: LayoutNHWC, Preprocess: PreprocessCaffe, ImageSize: 2}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})

	dst := make([]float32, 12)
	require.NoError(t, Preprocess(img, m, dst))

	// red pixel in BGR order, mean subtracted
	assert.InDelta(t, -103.939, dst[0], 1e-4)
	assert.InDelta(t, -116.779, dst[1], 1e-4)
	assert.InDelta(t, 255-123.68, dst[2], 1e-4)
	// transparent black pixel
	assert.InDelta(t, -103.939, dst[3], 1e-4)
	assert.InDelta(t, -123.68, dst[5], 1e-4)
}

func TestPreprocessNCHW(t *testing.T) {
	m := Metadata{Layout: LayoutNCHW, Preprocess: PreprocessUnit, ImageSize: 2}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{0, 0, 255, 255})

	dst := make([]float32, 12)
	require.NoError(t, Preprocess(img, m, dst))

	assert.Equal(t, []float32{1, 0, 0, 0}, dst[0:4], "red plane")
	assert.Equal(t, []float32{0, 0, 0, 0}, dst[4:8], "green plane")
	assert.Equal(t, []float32{0, 1, 0, 0}, dst[8:12], "blue plane")
}

func TestPreprocessTorch(t *testing.T) {
	m := Metadata{Layout: LayoutNHWC, Preprocess: PreprocessTorch, ImageSize: 1}
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})

	dst := make([]float32, 3)
	require.NoError(t, Preprocess(img, m, dst))

	assert.InDelta(t, (1-0.485)/0.229, dst[0], 1e-5)
	assert.InDelta(t, (1-0.456)/0.224, dst[1], 1e-5)
	assert.InDelta(t, (1-0.406)/0.225, dst[2], 1e-5)
}

func TestPreprocessSizeMismatch(t *testing.T) {
	m := Metadata{Layout: LayoutNHWC, Preprocess: PreprocessCaffe, ImageSize: 4}

	err := Preprocess(twoPixelImage(), m, make([]float32, 48))
	assert.Error(t, err)

	m.ImageSize = 2
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Error(t, Preprocess(img, m, make([]float32, 11)))
}

func TestNewExtractorInvalidMetadata(t *testing.T) {
	path := writeMetadata(t, `{"input_shape":[1,3,256,256],"output_shape":[1,512],"image_size":256}`)

	// NHWC is the default layout, so an NCHW shape without "layout" is rejected
	// before the ONNX runtime is touched.
	_, err := NewExtractor("model.onnx", path, "")
	assert.ErrorContains(t, err, "NHWC")
}

func TestExtractAfterClose(t *testing.T) {
	var e Extractor
	e.Metadata = Metadata{Layout: LayoutNHWC, Preprocess: PreprocessCaffe, ImageSize: 2}

	_, err := e.Extract(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.ErrorIs(t, err, ErrClosed)
}
