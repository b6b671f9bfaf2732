package model

import (
	"fmt"
	"image"
)

var (
	// caffeMean is the ImageNet mean in BGR order, on the 0-255 scale.
	caffeMean = [3]float32{103.939, 116.779, 123.68}

	torchMean = [3]float32{0.485, 0.456, 0.406}
	torchStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess writes img into dst as the network input described by m.
// dst must hold 3*ImageSize*ImageSize values.
func Preprocess(img image.Image, m Metadata, dst []float32) error {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width != m.ImageSize || height != m.ImageSize {
		return fmt.Errorf("expected %dx%d image, got %dx%d", m.ImageSize, m.ImageSize, width, height)
	}
	plane := width * height
	if len(dst) != 3*plane {
		return fmt.Errorf("expected input buffer of %d values, got %d", 3*plane, len(dst))
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			px := normalize(m.Preprocess, float32(r>>8), float32(g>>8), float32(b>>8))

			pixelIndex := y*width + x
			if m.Layout == LayoutNCHW {
				dst[pixelIndex] = px[0]
				dst[plane+pixelIndex] = px[1]
				dst[2*plane+pixelIndex] = px[2]
			} else {
				copy(dst[3*pixelIndex:3*pixelIndex+3], px[:])
			}
		}
	}
	return nil
}

// normalize maps one 0-255 RGB pixel to the channel values the network was
// trained on, in the channel order it expects.
func normalize(mode string, r, g, b float32) [3]float32 {
	switch mode {
	case PreprocessCaffe:
		return [3]float32{b - caffeMean[0], g - caffeMean[1], r - caffeMean[2]}
	case PreprocessTorch:
		return [3]float32{
			(r/255 - torchMean[0]) / torchStd[0],
			(g/255 - torchMean[1]) / torchStd[1],
			(b/255 - torchMean[2]) / torchStd[2],
		}
	default:
		return [3]float32{r / 255, g / 255, b / 255}
	}
}
