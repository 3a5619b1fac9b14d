// Package render is a scanline workload for the dispatcher: one round shades
// one frame, one index shades one row of a shared RGBA framebuffer.
package render

import (
	"image"

	"github.com/cespare/xxhash/v2"
	"github.com/paveg/dispatch/internal/validation"
)

const bytesPerPixel = 4

// Frame is an RGBA framebuffer. Rows are disjoint slices of Pix, so
// workers may write different rows concurrently.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a zeroed width x height frame.
func NewFrame(width, height int) (*Frame, error) {
	if err := validation.NewCompoundValidator(
		validation.NewPositiveValidator(width, "frame", "width"),
		validation.NewPositiveValidator(height, "frame", "height"),
	).Validate(); err != nil {
		return nil, err
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*bytesPerPixel),
	}, nil
}

// Row returns the pixel bytes of row y.
func (f *Frame) Row(y int) []uint8 {
	stride := f.Width * bytesPerPixel
	return f.Pix[y*stride : (y+1)*stride]
}

// Checksum hashes the pixel data. Two frames with the same pixels have the
// same checksum no matter how many workers produced them.
func (f *Frame) Checksum() uint64 {
	return xxhash.Sum64(f.Pix)
}

// Image copies the frame into an *image.RGBA.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	copy(img.Pix, f.Pix)
	return img
}
