package enode

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/birdayz/edgepipe/etag"
)

// Channels is the number of bytes per pixel in a Frame.
const Channels = 3

// Frame is an 8 bit RGB image stored row-major without padding.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a black frame.
func NewFrame(w, h int) *Frame {
	return &Frame{Width: w, Height: h, Pix: make([]byte, w*h*Channels)}
}

func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height*Channels {
		return fmt.Errorf("frame %dx%d has %d bytes, want %d", f.Width, f.Height, len(f.Pix), f.Width*f.Height*Channels)
	}
	return nil
}

func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

func (f *Frame) PinKind() etag.PinKind { return etag.Stream }

func (*Frame) payload() {}

func (f *Frame) Set(x, y int, c color.RGBA) {
	i := (y*f.Width + x) * Channels
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = c.R, c.G, c.B
}

func (f *Frame) At(x, y int) color.RGBA {
	i := (y*f.Width + x) * Channels
	return color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: 0xff}
}

// Image converts f to an opaque RGBA image.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+Channels, j+4 {
		img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = f.Pix[i], f.Pix[i+1], f.Pix[i+2], 0xff
	}
	return img
}

// FrameFromImage copies img into a new Frame, dropping alpha.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return frameFromRGBA(rgba)
}

func frameFromRGBA(img *image.RGBA) *Frame {
	f := NewFrame(img.Rect.Dx(), img.Rect.Dy())
	for y := 0; y < f.Height; y++ {
		row := img.Pix[y*img.Stride:]
		out := f.Pix[y*f.Width*Channels:]
		for x := 0; x < f.Width; x++ {
			out[x*3], out[x*3+1], out[x*3+2] = row[x*4], row[x*4+1], row[x*4+2]
		}
	}
	return f
}

// Resize scales f to w x h with bilinear interpolation. f is returned as is
// when it already has that size.
func (f *Frame) Resize(w, h int) *Frame {
	if f.Width == w && f.Height == h {
		return f
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), f.Image(), image.Rect(0, 0, f.Width, f.Height), draw.Src, nil)
	return frameFromRGBA(dst)
}
