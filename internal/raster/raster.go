// Package raster converts between raw RGB payloads, image files and
// in-memory rasters of a fixed size.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const (
	// Width and Height are the dimensions of every raster the service scores.
	Width  = 256
	Height = 256
	// Channels is the number of bytes per pixel in a raw payload (R, G, B).
	Channels = 3
)

// ErrPayloadSize is returned when a raw payload does not hold exactly
// width*height*3 bytes.
var ErrPayloadSize = errors.New("payload size does not match image dimensions")

// PayloadSize returns the number of bytes of a raw RGB payload for the given
// dimensions.
func PayloadSize(width, height int) int {
	return width * height * Channels
}

// FromRGB rebuilds a raster from row-major RGB bytes.
func FromRGB(data []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if want := PayloadSize(width, height); len(data) != want {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrPayloadSize, want, len(data))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(data); i, j = i+Channels, j+4 {
		img.Pix[j] = data[i]
		img.Pix[j+1] = data[i+1]
		img.Pix[j+2] = data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// ToRGB flattens img into row-major RGB bytes, dropping alpha.
func ToRGB(img image.Image) []byte {
	bounds := img.Bounds()
	out := make([]byte, 0, PayloadSize(bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out = append(out, c.R, c.G, c.B)
		}
	}
	return out
}

// Load decodes an encoded image (PNG, JPEG, GIF or WebP), drops its alpha
// channel and resizes it to width x height.
func Load(r io.Reader, width, height int) (*image.RGBA, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Same bytes as a raw payload of this image would carry.
	img, err := FromRGB(ToRGB(src), src.Bounds().Dx(), src.Bounds().Dy())
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s image: %w", format, err)
	}
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		return img, nil
	}

	resized := resize.Resize(uint(width), uint(height), img, resize.Bicubic)
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.Set(x, y, resized.At(resized.Bounds().Min.X+x, resized.Bounds().Min.Y+y))
		}
	}
	return out, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, width, height int) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := Load(f, width, height)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
