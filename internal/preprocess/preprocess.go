// internal/preprocess/preprocess.go
package preprocess

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

// Options binds preprocessing to one pretrained model. Values come from the
// extractor that consumes the tensor, never from package constants.
type Options struct {
	Width        int     `mapstructure:"width"`
	Height       int     `mapstructure:"height"`
	ChannelsLast bool    `mapstructure:"channels_last"`
	Mean         float32 `mapstructure:"mean"`
	Scale        float32 `mapstructure:"scale"`
}

// InceptionOptions matches the published input convention of the Inception
// graph: 224x224 RGB, interleaved, mean 117, scale 1.
func InceptionOptions() Options {
	return Options{
		Width:        224,
		Height:       224,
		ChannelsLast: true,
		Mean:         117,
		Scale:        1,
	}
}

// Validate checks that Options describe a usable tensor.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("invalid image size: %dx%d", o.Width, o.Height)
	}
	if o.Scale == 0 {
		return fmt.Errorf("scale must be non-zero")
	}
	return nil
}

// Channels is fixed at RGB.
const Channels = 3

// Tensor is a decoded, normalized image with a batch dimension of one.
type Tensor struct {
	Data         []float32
	Height       int
	Width        int
	Channels     int
	ChannelsLast bool
}

// Shape returns [1, H, W, C] for channels-last tensors and [1, C, H, W] otherwise.
func (t *Tensor) Shape() []int64 {
	if t.ChannelsLast {
		return []int64{1, int64(t.Height), int64(t.Width), int64(t.Channels)}
	}
	return []int64{1, int64(t.Channels), int64(t.Height), int64(t.Width)}
}

// Decode reads an image in any registered format.
func Decode(r io.Reader, name string) (image.Image, error) {
	img, _, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, &errs.ImageDecodeError{Path: name, Err: err}
	}
	return img, nil
}

// Resize scales img to width x height with bilinear interpolation. The
// algorithm is fixed so scores stay reproducible for a given model.
func Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

// ExtractPixels converts img to a float tensor, subtracting opts.Mean from each
// 8-bit RGB channel and dividing by opts.Scale.
func ExtractPixels(img image.Image, opts Options) *Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	data := make([]float32, Channels*plane)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px := [Channels]float32{float32(r >> 8), float32(g >> 8), float32(bl >> 8)}

			idx := y*w + x
			for c := 0; c < Channels; c++ {
				v := (px[c] - opts.Mean) / opts.Scale
				if opts.ChannelsLast {
					data[idx*Channels+c] = v
				} else {
					data[c*plane+idx] = v
				}
			}
		}
	}

	return &Tensor{
		Data:         data,
		Height:       h,
		Width:        w,
		Channels:     Channels,
		ChannelsLast: opts.ChannelsLast,
	}
}

// Prepare resizes img and extracts its pixels in one step.
func Prepare(img image.Image, opts Options) *Tensor {
	return ExtractPixels(Resize(img, opts.Width, opts.Height), opts)
}
